package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Clinic ClinicConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ClinicConfig describes the daily booking window and slot grid
type ClinicConfig struct {
	OpenHour    int
	CloseHour   int
	SlotMinutes int
	GracePeriod time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	gracePeriod, err := time.ParseDuration(viper.GetString("BOOKING_GRACE_PERIOD"))
	if err != nil {
		gracePeriod = time.Hour
	}

	openHour := viper.GetInt("CLINIC_OPEN_HOUR")
	closeHour := viper.GetInt("CLINIC_CLOSE_HOUR")
	if openHour == 0 && closeHour == 0 {
		openHour = 8
		closeHour = 18
	}

	slotMinutes := viper.GetInt("CLINIC_SLOT_MINUTES")
	if slotMinutes <= 0 {
		slotMinutes = 30
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Clinic: ClinicConfig{
			OpenHour:    openHour,
			CloseHour:   closeHour,
			SlotMinutes: slotMinutes,
			GracePeriod: gracePeriod,
		},
	}

	return config, nil
}
