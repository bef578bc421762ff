package ratelimit

import "fmt"

// NewStore creates a counter store based on the configured driver.
func NewStore(cfg StoreConfig) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		mem := MemoryConfig{}
		if cfg.Memory != nil {
			mem = *cfg.Memory
		}
		return NewMemory(mem), nil
	case DriverRedis:
		return NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported rate limit store driver: %s", driver)
	}
}
