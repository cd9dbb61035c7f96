package config

const (
	defaultWorkDir   = "~/.local/share/dubber/work"
	defaultOutputDir = "~/.local/share/dubber/output"
	defaultLogDir    = "~/.local/share/dubber/logs"

	defaultDeepgramBaseURL       = "https://api.deepgram.com"
	defaultTranscriptionModel    = "nova-2"
	defaultDeepgramTimeout       = 120
	defaultOpenAIModel           = "gpt-4o-mini"
	defaultOpenAITemperature     = 0.3
	defaultOpenAITimeout         = 60
	defaultSilenceGapSeconds     = 0.1
	defaultMinSegmentSeconds     = 0.05
	defaultDurationTolerance     = 0.05
	defaultMaxStretchFactor      = 1.35
	defaultMaxChunkLength        = 1000
	defaultLanguageWorkers       = 2
	defaultSampleRate            = 44100
	defaultChannels              = 2
	defaultMinSpeakerSampleSecs  = 0.5
	defaultVoiceGain             = 0.8
	defaultBackgroundGain        = 0.3
	defaultDuckingThreshold      = 0.1
	defaultDuckingReduction      = 0.3
	defaultExportContainer       = "m4a"
	defaultExportBitrate         = "192k"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultProbeTimeout          = 30
	defaultExtractionTimeout     = 300
	defaultOperationTimeout      = 120
	defaultQueuePollInterval     = 5
	defaultJobWorkers            = 2
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Deepgram: Deepgram{
			BaseURL:            defaultDeepgramBaseURL,
			TranscriptionModel: defaultTranscriptionModel,
			RequestTimeout:     defaultDeepgramTimeout,
		},
		OpenAI: OpenAI{
			Model:          defaultOpenAIModel,
			Temperature:    defaultOpenAITemperature,
			RequestTimeout: defaultOpenAITimeout,
		},
		Pipeline: Pipeline{
			SilenceGapSeconds:    defaultSilenceGapSeconds,
			MinSegmentSeconds:    defaultMinSegmentSeconds,
			DurationTolerance:    defaultDurationTolerance,
			MaxStretchFactor:     defaultMaxStretchFactor,
			MaxChunkLength:       defaultMaxChunkLength,
			LanguageWorkers:      defaultLanguageWorkers,
			SampleRate:           defaultSampleRate,
			Channels:             defaultChannels,
			MinSpeakerSampleSecs: defaultMinSpeakerSampleSecs,
		},
		Mix: Mix{
			VoiceGain:        defaultVoiceGain,
			BackgroundGain:   defaultBackgroundGain,
			DuckingEnabled:   false,
			DuckingThreshold: defaultDuckingThreshold,
			DuckingReduction: defaultDuckingReduction,
		},
		Export: Export{
			Container:     defaultExportContainer,
			Bitrate:       defaultExportBitrate,
			WriteCaptions: true,
			WriteBundle:   false,
		},
		Tools: Tools{
			FFmpeg:            defaultFFmpegBinary,
			FFprobe:           defaultFFprobeBinary,
			ProbeTimeout:      defaultProbeTimeout,
			ExtractionTimeout: defaultExtractionTimeout,
			OperationTimeout:  defaultOperationTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			JobWorkers:        defaultJobWorkers,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
