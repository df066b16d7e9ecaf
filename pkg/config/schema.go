package config

// settingsSchema is the CUE schema the settings file must satisfy.
// Definitions are closed, so misspelled fields fail the load instead of
// being silently dropped.
const settingsSchema = `
#Settings: {
	job_queue: #JobQueue
	orchestrator?: #Orchestrator
	store?: #Store
	guardrails?: #Guardrails
	telemetry?: #Telemetry
}

#JobQueue: {
	// Endpoint is the base URL of the job queue API
	endpoint: string & =~"^https?://"

	// Token is the bearer token sent with every request
	token?: string

	request_timeout_seconds?: int & >=1 & <=300
}

#Orchestrator: {
	preflight_poll_interval_seconds?: int & >=1
	preflight_timeout_seconds?:       int & >=10
	execute_poll_interval_seconds?:   int & >=1
	execute_timeout_seconds?:         int & >=60
	decision_poll_interval_seconds?:  int & >=1
	decision_timeout_seconds?:        int & >=60
	default_test_duration_minutes?:   int & >=15 & <=480
}

#Store: {
	// Path is the SQLite database file path
	path?: string & !=""
}

#Guardrails: {
	enabled?: bool
	policy_dirs?: [...string]
	watch?: bool
}

#Telemetry: {
	environment?:            "development" | "staging" | "production"
	log_level?:              "trace" | "debug" | "info" | "warn" | "error" | "fatal"
	log_format?:             "console" | "json"
	metrics_enabled?:        bool
	metrics_listen_address?: string
	tracing_enabled?:        bool
	tracing_exporter?:       "otlp" | "stdout" | "none"
	tracing_endpoint?:       string
}
`
