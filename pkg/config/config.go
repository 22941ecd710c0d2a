package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string   // connection string for the database, empty disables persistence
	WaitForServices    string   // duration to wait for other services to be ready
	LogLevel           string   // sets the log level (zap log level values)
	SQLLogLevel        string   // sets the log level for sql subsystem
	LogFormat          string   // text vs json
	LogFilter          string   // zapfilter rules, e.g. "info:* debug:session"
	MigrationSourceURL string   // location of migration files, empty uses the embedded ones
	EnableTelemetry    bool     // enable telemetry
	TelemetryEndpoint  string   // endpoint for telemetry, empty writes to stderr
	ListenAddr         string   // udp addr for F1 telemetry
	ReadBuffer         int      // socket receive buffer in bytes
	QueueSize          int      // datagrams buffered between receiver and processing
	SilenceTimeout     string   // duration after which an active session is considered stalled
	Drivers            []string // driver bindings, e.g. player=player or rival=car:5
	ProfileFile        string   // yaml file holding driver profiles
	ProfileCacheTTL    string   // duration a loaded profile is kept
	NatsURL            string   // nats server, empty disables publishing
	NatsPrefix         string   // first subject token
	NatsKVBucket       string   // jetstream key value bucket, empty disables it
	ArchiveEvents      bool     // store emitted events in the database
	GapSamples         int      // samples a gap trend must hold
	GapMinDelta        float64  // minimum gap change per sample in seconds
)
