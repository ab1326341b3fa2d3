package config

// VolumeConfig names the disk image gosfsd mounts at startup. When the
// image at DevicePath doesn't exist yet and AutoFormat is set, the server
// formats it with FormatBlocks blocks before mounting.
type VolumeConfig struct {
	DevicePath   string `yaml:"device_path" env:"GOSFS_DEVICE_PATH"`
	FormatBlocks int64  `yaml:"format_blocks" env-default:"4096"`
	AutoFormat   bool   `yaml:"auto_format" env-default:"true"`
	MountID      string `yaml:"mount_id" env-default:"default"`
}
