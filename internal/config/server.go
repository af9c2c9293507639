package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":3000"`

	RoomCodeLength int `env:"ROOM_CODE_LENGTH" envDefault:"4"`
	RoomIdleMins   int `env:"ROOM_IDLE_MINUTES" envDefault:"30"`
	CleanupMins    int `env:"ROOM_CLEANUP_MINUTES" envDefault:"5"`

	MaxPlayers        int `env:"MAX_PLAYERS" envDefault:"5"`
	InitialMeldPoints int `env:"INITIAL_MELD_POINTS" envDefault:"30"`
	MaxGroups         int `env:"MAX_TABLE_GROUPS" envDefault:"80"`
	MaxTableTiles     int `env:"MAX_TABLE_TILES" envDefault:"120"`

	MaxNameLen      int   `env:"MAX_NAME_LENGTH" envDefault:"12"`
	MaxChatLen      int   `env:"MAX_CHAT_LENGTH" envDefault:"240"`
	MaxMessageBytes int64 `env:"MAX_MESSAGE_BYTES" envDefault:"65536"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
