// Package cfg loads the download service's configuration from the process
// environment (prefix DLSVC_), mirroring the original service's
// environment-driven Settings object one key at a time.
package cfg

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/PilotDataPlatform/download/cmn"
)

// Config holds every recognised option from spec.md §6.
type Config struct {
	Host string
	Port int

	RootPath        string
	GreenZoneLabel  string
	CoreZoneLabel   string

	MetadataService string
	DataopsService   string
	DatasetService   string
	ProjectService   string

	ObjectStoreInternalEndpoint string
	ObjectStoreInternalTLS      bool
	ObjectStorePublicEndpoint   string
	ObjectStorePublicTLS        bool
	ObjectStoreAccessKey        string
	ObjectStoreSecretKey        string

	DownloadTokenSecret    string
	DownloadTokenTTLScale  int // multiplies the 24h base TTL, per spec.md §4.1
	LockAcquireTimeout     time.Duration

	JobStorePath string // buntdb file, ":memory:" for an in-process cache

	PostgresDSN          string
	PostgresSchema       string
	ApprovalTable        string

	KafkaBrokers          []string
	KafkaItemTopic        string
	KafkaDatasetTopic     string

	ScratchRoot string

	ZoneLabels map[int]string
}

// Load reads configuration from the environment (and an optional config
// file set via DLSVC_CONFIG_FILE), applying defaults suitable for local
// development.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DLSVC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cf := v.GetString("config_file"); cf != "" {
		v.SetConfigFile(cf)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cfg: read config file %q: %w", cf, err)
		}
	}

	setDefaults(v)

	c := &Config{
		Host:                         v.GetString("host"),
		Port:                         v.GetInt("port"),
		RootPath:                     v.GetString("root_path"),
		GreenZoneLabel:               v.GetString("green_zone_label"),
		CoreZoneLabel:                v.GetString("core_zone_label"),
		MetadataService:              v.GetString("metadata_service"),
		DataopsService:               v.GetString("dataops_service"),
		DatasetService:               v.GetString("dataset_service"),
		ProjectService:               v.GetString("project_service"),
		ObjectStoreInternalEndpoint:  v.GetString("objectstore_internal_endpoint"),
		ObjectStoreInternalTLS:       v.GetBool("objectstore_internal_tls"),
		ObjectStorePublicEndpoint:    v.GetString("objectstore_public_endpoint"),
		ObjectStorePublicTLS:         v.GetBool("objectstore_public_tls"),
		ObjectStoreAccessKey:         v.GetString("objectstore_access_key"),
		ObjectStoreSecretKey:         v.GetString("objectstore_secret_key"),
		DownloadTokenSecret:          v.GetString("download_token_secret"),
		DownloadTokenTTLScale:        v.GetInt("download_token_ttl_scale"),
		LockAcquireTimeout:           v.GetDuration("lock_acquire_timeout"),
		JobStorePath:                 v.GetString("jobstore_path"),
		PostgresDSN:                  v.GetString("postgres_dsn"),
		PostgresSchema:               v.GetString("postgres_schema"),
		ApprovalTable:                v.GetString("approval_table"),
		KafkaBrokers:                 v.GetStringSlice("kafka_brokers"),
		KafkaItemTopic:               v.GetString("kafka_item_topic"),
		KafkaDatasetTopic:            v.GetString("kafka_dataset_topic"),
		ScratchRoot:                  v.GetString("scratch_root"),
		ZoneLabels:                   cmn.ZoneLabels,
	}

	if c.DownloadTokenSecret == "" {
		return nil, fmt.Errorf("cfg: DLSVC_DOWNLOAD_TOKEN_SECRET must be set")
	}

	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5077)
	v.SetDefault("root_path", "/data")
	v.SetDefault("green_zone_label", "greenroom")
	v.SetDefault("core_zone_label", "core")
	v.SetDefault("objectstore_public_tls", true)
	v.SetDefault("download_token_ttl_scale", 1)
	v.SetDefault("lock_acquire_timeout", 3600*time.Second)
	v.SetDefault("jobstore_path", "/data/jobstore.db")
	v.SetDefault("postgres_schema", "public")
	v.SetDefault("approval_table", "approval_entity")
	v.SetDefault("kafka_item_topic", cmn.TopicItemActivity)
	v.SetDefault("kafka_dataset_topic", cmn.TopicDatasetActivity)
	v.SetDefault("scratch_root", "/data/tmp")
}
