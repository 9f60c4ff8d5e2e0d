package config

type StorageConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisKeyPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetRedisAddr returns the Redis address. Empty selects the in-memory
// store, which is suitable for development only.
func (Storage) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (Storage) GetRedisPassword() string {
	return GetEnv(redisPassVar, "")
}

func (Storage) GetRedisKeyPrefix() string {
	return GetEnv(redisPrefixVar, "bbauth:")
}
