// Package config loads moodlink configuration.
//
// Configuration is layered: Default() supplies every value, each file added
// with AddLayer overrides only the keys it sets, and MOODLINK_* environment
// variables override the result. Files are YAML; JSON files parse the same way.
// Durations are written as Go duration strings such as "2s".
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/moodlink/moodlink.yaml")
//	cfg, err := loader.Load()
//
// Environment overrides:
//
//	MOODLINK_ROLE               receiver | sender
//	MOODLINK_LINK_TRANSPORT     tcp | websocket
//	MOODLINK_LINK_LISTEN        listen address
//	MOODLINK_LINK_PEER          peer address for the sender
//	MOODLINK_CLASSIFIER_MODE    windowed | instantaneous
//	MOODLINK_UI_SINK            log | nats | both
//	MOODLINK_NATS_URL           NATS server URL
//	MOODLINK_NATS_TOKEN         NATS token
//	MOODLINK_METRICS_PORT       metrics/health port, 0 disables
package config
