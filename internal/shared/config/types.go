package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`

	// MaintenanceUsername/MaintenancePassword identify the BYPASSRLS role
	// used by migrations and administrative tooling. The application role
	// above cannot bypass row-level security.
	MaintenanceUsername string `mapstructure:"maintenance_username"`
	MaintenancePassword string `mapstructure:"maintenance_password"`
}

func (d *DatabaseConfig) GetDSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
}

func (d *DatabaseConfig) GetMaintenanceDSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	user := d.MaintenanceUsername
	pass := d.MaintenancePassword
	if user == "" {
		user = d.Username
		pass = d.Password
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, user, pass, d.Database, sslMode)
}

// SessionPoolConfig tunes the tenant-keyed database session pool.
type SessionPoolConfig struct {
	MaxSessions     int `mapstructure:"max_sessions"`
	MaxIdlePerKey   int `mapstructure:"max_idle_per_key"`
	MaxIdleSeconds  int `mapstructure:"max_idle_seconds"`
	SweepIntervalMS int `mapstructure:"sweep_interval_ms"`
}

// RLSConfig locates the tenant-scoped table manifest.
type RLSConfig struct {
	ManifestPath string `mapstructure:"manifest_path"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	Issuer           string `mapstructure:"issuer"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
	RefreshExpDays   int    `mapstructure:"refresh_exp_days"`
}

// OIDCConfig configures the authorization-code login flow against the
// identity provider (Auth0 or any standard OIDC issuer).
type OIDCConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
	UserInfoURL  string `mapstructure:"userinfo_url"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type ServiceAuthConfig struct {
	// KeyHashes holds bcrypt hashes of service API keys permitted to assert
	// X-Tenant-ID directly (service-to-service callers only).
	KeyHashes []string `mapstructure:"key_hashes"`
}

type AuthConfig struct {
	JWT     JWTConfig         `mapstructure:"jwt"`
	OIDC    OIDCConfig        `mapstructure:"oidc"`
	Service ServiceAuthConfig `mapstructure:"service"`
	// RBACModelPath points at the casbin model file guarding the admin surface.
	RBACModelPath string `mapstructure:"rbac_model_path"`
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
