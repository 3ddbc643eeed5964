package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/ballbattle/go/internal/room/natsroom"
	"github.com/mcdev12/ballbattle/go/internal/world/authority"
	"github.com/mcdev12/ballbattle/go/internal/world/controller"
	"github.com/mcdev12/ballbattle/go/internal/world/gateway"
)

//go:embed config.schema.json
var schemaSource string

var schema = jsonschema.MustCompileString("config.schema.json", schemaSource)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Room    RoomConfig    `yaml:"room"`
	World   WorldConfig   `yaml:"world"`
	Gateway GatewayConfig `yaml:"gateway"`
	Log     LogConfig     `yaml:"log"`
}

type RoomConfig struct {
	ID                string        `yaml:"id"`
	NatsURL           string        `yaml:"nats_url"`
	Participant       string        `yaml:"participant"`
	PresenceTTL       time.Duration `yaml:"presence_ttl"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	GuardedWrites     bool          `yaml:"guarded_writes"`
	CompressThreshold int           `yaml:"compress_threshold"`
	WriteQueueSize    int           `yaml:"write_queue_size"`
	InboxSize         int           `yaml:"inbox_size"`
}

type WorldConfig struct {
	ItemTypes      int          `yaml:"item_types"`
	InitialItems   int          `yaml:"initial_items"`
	SpawnBatchSize int          `yaml:"spawn_batch_size"`
	MaxBatchSize   int          `yaml:"max_batch_size"`
	MinItems       int          `yaml:"min_items"`
	Bounds         BoundsConfig `yaml:"bounds"`
}

type BoundsConfig struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

type GatewayConfig struct {
	Addr         string        `yaml:"addr"`
	PingInterval time.Duration `yaml:"ping_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	nc := natsroom.DefaultConfig()
	gc := gateway.DefaultConfig()
	return Config{
		Room: RoomConfig{
			ID:                "lobby",
			NatsURL:           nc.URL,
			PresenceTTL:       nc.PresenceTTL,
			HeartbeatInterval: nc.HeartbeatInterval,
			CompressThreshold: nc.CompressThreshold,
			WriteQueueSize:    nc.WriteQueueSize,
			InboxSize:         nc.InboxSize,
		},
		World: WorldConfig{
			ItemTypes:      4,
			InitialItems:   100,
			SpawnBatchSize: 10,
			MaxBatchSize:   50,
			MinItems:       50,
			Bounds:         BoundsConfig{MinX: -50, MaxX: 50, MinY: -50, MaxY: 50},
		},
		Gateway: GatewayConfig{
			Addr:         gc.Addr,
			PingInterval: gc.ConnectionConfig.PingInterval,
			WriteTimeout: gc.ConnectionConfig.WriteTimeout,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse checks data against the config schema and decodes it into cfg
func Parse(data []byte, cfg *Config) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		return nil
	}

	// The validator wants JSON-shaped values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert config: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("failed to convert config: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Room.ID = getEnv("ROOM_ID", c.Room.ID)
	c.Room.NatsURL = getEnv("NATS_URL", c.Room.NatsURL)
	c.Room.Participant = getEnv("PARTICIPANT_ID", c.Room.Participant)
	c.World.InitialItems = getEnvAsInt("INITIAL_ITEMS", c.World.InitialItems)
	c.World.MinItems = getEnvAsInt("MIN_ITEMS", c.World.MinItems)
	c.Gateway.Addr = getEnv("GATEWAY_ADDR", c.Gateway.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate checks the rules the schema cannot express
func (c *Config) Validate() error {
	switch {
	case c.Room.ID == "":
		return fmt.Errorf("%w: room.id is required", ErrInvalidConfig)
	case c.Room.HeartbeatInterval <= 0:
		return fmt.Errorf("%w: room.heartbeat_interval must be positive", ErrInvalidConfig)
	case c.Room.PresenceTTL <= c.Room.HeartbeatInterval:
		return fmt.Errorf("%w: room.presence_ttl must exceed room.heartbeat_interval", ErrInvalidConfig)
	case c.World.SpawnBatchSize > c.World.MaxBatchSize:
		return fmt.Errorf("%w: world.spawn_batch_size exceeds world.max_batch_size", ErrInvalidConfig)
	case c.World.Bounds.MinX >= c.World.Bounds.MaxX || c.World.Bounds.MinY >= c.World.Bounds.MaxY:
		return fmt.Errorf("%w: world.bounds is empty", ErrInvalidConfig)
	}
	return nil
}

// ToController returns the world controller settings
func (c *Config) ToController() controller.Config {
	return controller.Config{
		Authority: authority.Config{
			ItemTypes:    c.World.ItemTypes,
			MaxBatchSize: c.World.MaxBatchSize,
		},
		Bounds: authority.Bounds{
			MinX: c.World.Bounds.MinX,
			MaxX: c.World.Bounds.MaxX,
			MinY: c.World.Bounds.MinY,
			MaxY: c.World.Bounds.MaxY,
		},
		InitialItems:   c.World.InitialItems,
		SpawnBatchSize: c.World.SpawnBatchSize,
		MinItems:       c.World.MinItems,
	}
}

// ToNATSRoom returns the room connection settings for participantID
func (c *Config) ToNATSRoom(participantID string) natsroom.Config {
	nc := natsroom.DefaultConfig()
	nc.URL = c.Room.NatsURL
	nc.RoomID = c.Room.ID
	nc.ParticipantID = participantID
	nc.PresenceTTL = c.Room.PresenceTTL
	nc.HeartbeatInterval = c.Room.HeartbeatInterval
	nc.GuardedWrites = c.Room.GuardedWrites
	nc.CompressThreshold = c.Room.CompressThreshold
	nc.WriteQueueSize = c.Room.WriteQueueSize
	nc.InboxSize = c.Room.InboxSize
	return nc
}

// ToGateway returns the spectator gateway settings
func (c *Config) ToGateway() gateway.Config {
	gc := gateway.DefaultConfig()
	gc.Addr = c.Gateway.Addr
	gc.ConnectionConfig.PingInterval = c.Gateway.PingInterval
	gc.ConnectionConfig.WriteTimeout = c.Gateway.WriteTimeout
	return gc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
