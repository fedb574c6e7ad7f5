package disk

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-btrfs/internal/checksums"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// CheckConfig holds the fallback context used when a block is checked
// without a readable superblock (raw block dumps).
type CheckConfig struct {
	SectorSize uint32 `mapstructure:"sectorsize"`
	NodeSize   uint32 `mapstructure:"nodesize"`
	Generation uint64 `mapstructure:"generation"`
	CsumType   uint16 `mapstructure:"csum_type"`
}

// LoadCheckConfig loads the checker configuration using Viper
func LoadCheckConfig() (*CheckConfig, error) {
	viper.SetConfigName("btrfs-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.btrfs")
	viper.AddConfigPath("/etc/btrfs")

	// Set defaults
	viper.SetDefault("sectorsize", 4096)
	viper.SetDefault("nodesize", 16384)
	viper.SetDefault("generation", ^uint64(0)>>1) // effectively unbounded
	viper.SetDefault("csum_type", checksums.TypeCRC32C)

	// Allow environment variables
	viper.SetEnvPrefix("BTRFS")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config CheckConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// FsInfo converts the fallback configuration into checker context.
func (c *CheckConfig) FsInfo() (*types.FsInfo, error) {
	csumSize, err := checksums.Size(c.CsumType)
	if err != nil {
		return nil, err
	}
	return &types.FsInfo{
		SectorSize: c.SectorSize,
		NodeSize:   c.NodeSize,
		Generation: c.Generation,
		CsumType:   c.CsumType,
		CsumSize:   csumSize,
	}, nil
}
