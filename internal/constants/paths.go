package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultDataDir is the default directory for the database and the jobs file
const DefaultDataDir = "~/.rereminder"

// DatabaseFilename is the SQLite database file inside the data directory
const DatabaseFilename = "reminders.db"

// JobsFilename is the JSONL file with persisted scheduler jobs
const JobsFilename = "jobs.jsonl"
