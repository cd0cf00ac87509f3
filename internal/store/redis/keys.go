package redis

const (
	// KeyPrefixConfig is the prefix for configuration records
	KeyPrefixConfig = "arrgate:config:"
	// KeyPrefixUserConfigs is the prefix for the per-user set of service names
	KeyPrefixUserConfigs = "arrgate:configs:"
)

// ConfigKey returns the Redis key for one user's configuration of a service
func ConfigKey(userID, serviceName string) string {
	return KeyPrefixConfig + userID + ":" + serviceName
}

// UserConfigsKey returns the key for the set of services a user configured
func UserConfigsKey(userID string) string {
	return KeyPrefixUserConfigs + userID
}
