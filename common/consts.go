package common

const (
	// envs:
	LocalEnv = "local"
	ProEnv   = "pro"

	// transports:
	SQSTransport   = "sqs"
	LocalTransport = "local"

	// OS:
	WindowsOS = "windows"
	LinuxOS   = "linux"
	MacOS     = "darwin"

	// event types:
	LeadNewEventType = "Lead.New"

	// message attributes:
	EventTypeAttribute     = "EventType"
	RetryCountAttribute    = "RetryCount"
	ShouldFailAttribute    = "ShouldFail"
	OriginalQueueAttribute = "OriginalQueue"
	ErrorCountAttribute    = "ErrorCount"
	LastErrorAttribute     = "LastError"

	// message attribute data types, as SQS names them:
	StringDataType = "String"
	NumberDataType = "Number"
)

var (
	SupportedEnvs = map[string]bool{
		LocalEnv: true,
		ProEnv:   true,
	}

	SupportedTransports = map[string]bool{
		SQSTransport:   true,
		LocalTransport: true,
	}
)
