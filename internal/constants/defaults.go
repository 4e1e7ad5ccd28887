package constants

// DefaultVersion is the default version of the application
const DefaultVersion = "0.1.0-dev"

// DefaultBuildTime is the default build time when not provided at build time
const DefaultBuildTime = "unknown"

// DefaultGitCommit is the default git commit hash when not provided at build time
const DefaultGitCommit = "unknown"

// DefaultGoVersion is the default Go version when not provided at build time
const DefaultGoVersion = "unknown"

// DefaultTimezone is used when the user has not chosen a timezone.
const DefaultTimezone = "Europe/Moscow"

// DefaultMorningTime is the clock time for "утром".
const DefaultMorningTime = "08:00"

// DefaultEveningTime is the clock time for "вечером".
const DefaultEveningTime = "18:00"

// DefaultAutoPostponeMinutes is the inertia re-prompt delay.
const DefaultAutoPostponeMinutes = 15

// DefaultMetricsNamespace prefixes every prometheus collector.
const DefaultMetricsNamespace = "rereminder"
