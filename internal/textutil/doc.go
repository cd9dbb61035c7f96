// Package textutil derives filesystem-safe tokens from arbitrary input
// media names.
package textutil
