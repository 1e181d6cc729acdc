package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a blob backend. Field tags bind it to the
// environment when nested in the service configuration.
type Config struct {
	Driver string   `env:"DRIVER" envDefault:"fs"`
	FSRoot string   `env:"FS_ROOT" envDefault:"./blobdata"`
	S3     S3Config `envPrefix:"S3_"`
}

// Open constructs the blob.Store named by cfg.Driver (fs|s3|memory, default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
