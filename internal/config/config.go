package config

import (
	"log"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DB      DB
	Server  Server
	Storage Storage
	Auth    Auth
	Kafka   Kafka
	Log     Log
	RateRPS float64  `envconfig:"RATE_LIMIT_RPS" default:"0"`
	Burst   int      `envconfig:"RATE_LIMIT_BURST" default:"20"`
	Origins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	Migrate bool     `envconfig:"AUTO_MIGRATE" default:"false"`
}

type DB struct {
	URL             string        `envconfig:"DB_URL"`
	Host            string        `envconfig:"DB_HOST" default:"127.0.0.1"`
	Port            string        `envconfig:"DB_PORT" default:"3306"`
	User            string        `envconfig:"DB_USER" default:"root"`
	Password        string        `envconfig:"DB_PASSWORD"`
	Name            string        `envconfig:"DB_NAME" default:"bookstore"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// DSN returns DB_URL when set, otherwise a DSN assembled from the
// individual settings.
func (d DB) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	c := mysql.NewConfig()
	c.User = d.User
	c.Passwd = d.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(d.Host, d.Port)
	c.DBName = d.Name
	c.ParseTime = true
	return c.FormatDSN()
}

type Server struct {
	CatalogPort  string `envconfig:"CATALOG_PORT" default:"5000"`
	AccountsPort string `envconfig:"ACCOUNTS_PORT" default:"5001"`
}

type Storage struct {
	Backend        string `envconfig:"STORAGE_BACKEND" default:"local"`
	UploadFolder   string `envconfig:"UPLOAD_FOLDER" default:"static/uploads"`
	URLPrefix      string `envconfig:"UPLOAD_URL_PREFIX" default:"/static/uploads"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"bookstore"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type Auth struct {
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	TokenTTL          time.Duration `envconfig:"JWT_TTL" default:"24h"`
	RequireAdminToken bool          `envconfig:"REQUIRE_ADMIN_TOKEN" default:"false"`
}

type Kafka struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"bookstore.purchases"`
}

type Log struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console"`
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using environment and defaults")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
