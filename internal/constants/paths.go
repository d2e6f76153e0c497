package constants

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// PidFileName is the pid file name inside the state directory
const PidFileName = "pagewatch.pid"

// ResultLogName is the result log file name inside the state directory
const ResultLogName = "results.log"
