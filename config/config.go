package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port        string `yaml:"port"`
		CallbackURL string `yaml:"callback_url"`
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	AI struct {
		ImageAPI string `yaml:"image_api"`
		VoiceAPI string `yaml:"voice_api"`
	} `yaml:"ai"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Worker struct {
		Addr string `yaml:"addr"`
	} `yaml:"worker"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		Domain    string `yaml:"domain"`
	} `yaml:"minio"`
}

var AppConfig *Config

func InitConfig() {
	// .env is optional; secrets are referenced from config.yaml via ${VAR}
	_ = godotenv.Load()

	b, err := os.ReadFile("config/config.yaml")
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}
	expanded := os.ExpandEnv(string(b))

	AppConfig = &Config{}
	if err := yaml.Unmarshal([]byte(expanded), AppConfig); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	if AppConfig.Server.Port == "" {
		AppConfig.Server.Port = ":3000"
	}
	if AppConfig.Server.CallbackURL == "" {
		AppConfig.Server.CallbackURL = "http://localhost:3000/webhook/video-ready"
	}
}
