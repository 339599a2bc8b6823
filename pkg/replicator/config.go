package replicator

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	ErrNoTarget      = errors.New("configuration requires a target endpoint")
	ErrNoDatabase    = errors.New("configuration requires a local database")
	ErrBadDirection  = errors.New("invalid replicator type")
	ErrFrozenConfig  = errors.New("configuration is frozen while the replicator is running")
	ErrUnknownScheme = errors.New("endpoint scheme must be ws or wss")
)

func init() {
	validate = validator.New()
}

// ReplicatorType selects the enabled transfer directions
type ReplicatorType int

const (
	// TypePushAndPull enables both directions (default)
	TypePushAndPull ReplicatorType = iota
	// TypePush enables local-to-remote transfer only
	TypePush
	// TypePull enables remote-to-local transfer only
	TypePull
)

// String returns the string representation of a replicator type
func (t ReplicatorType) String() string {
	switch t {
	case TypePush:
		return "push"
	case TypePull:
		return "pull"
	default:
		return "pushAndPull"
	}
}

// ParseReplicatorType converts a string to a ReplicatorType
func ParseReplicatorType(s string) (ReplicatorType, error) {
	switch s {
	case "pushAndPull", "":
		return TypePushAndPull, nil
	case "push":
		return TypePush, nil
	case "pull":
		return TypePull, nil
	default:
		return TypePushAndPull, fmt.Errorf("%w: %q", ErrBadDirection, s)
	}
}

// pushMode maps the type to the engine's push mode
func (t ReplicatorType) pushMode(continuous bool) Mode {
	if t == TypePull {
		return ModeDisabled
	}
	if continuous {
		return ModeContinuous
	}
	return ModeOneShot
}

// pullMode maps the type to the engine's pull mode
func (t ReplicatorType) pullMode(continuous bool) Mode {
	if t == TypePush {
		return ModeDisabled
	}
	if continuous {
		return ModeContinuous
	}
	return ModeOneShot
}

// Endpoint is the replication target: either a remote address or a local
// peer database. Exactly one implementation per configuration.
type Endpoint interface {
	// Describe returns a loggable description of the endpoint
	Describe() string
}

// URLEndpoint addresses a remote peer over the sync protocol
type URLEndpoint struct {
	Scheme   string `yaml:"scheme" validate:"required,oneof=ws wss"`
	Host     string `yaml:"host" validate:"required,hostname|ip"`
	Port     int    `yaml:"port" validate:"required,min=1,max=65535"`
	Path     string `yaml:"path" validate:"omitempty"`
	Database string `yaml:"database" validate:"required,min=1,max=240"`
}

// Describe implements Endpoint
func (e *URLEndpoint) Describe() string {
	return fmt.Sprintf("%s://%s%s/%s", e.Scheme, e.Address(), e.Path, e.Database)
}

// Address returns the "host:port" dial address of the endpoint
func (e *URLEndpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Validate checks the endpoint fields
func (e *URLEndpoint) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid URL endpoint: %w", err)
	}
	return nil
}

// DatabaseEndpoint addresses a local peer database
type DatabaseEndpoint struct {
	Database Database
}

// Describe implements Endpoint
func (e *DatabaseEndpoint) Describe() string {
	return fmt.Sprintf("db://%s", e.Database.Name())
}

// ReplicationConfiguration describes one replication relationship. The
// controller deep-clones it on construction and on read access, so callers
// can never mutate live state. Protocol options are frozen once a session
// starts.
type ReplicationConfiguration struct {
	// Database is the local database being synchronized
	Database Database

	// Target is the remote or local peer
	Target Endpoint

	// Type selects push, pull, or both. At least one direction is always
	// enabled by construction.
	Type ReplicatorType

	// Continuous keeps the session alive after it goes idle and governs
	// the retry policy
	Continuous bool

	// Authenticator, when set, is applied to the protocol options once
	// before each session creation
	Authenticator Authenticator

	// Resolver handles pull conflicts. Nil routes conflicts to the
	// database's default resolution.
	Resolver ConflictResolver

	// Headers are extra protocol headers sent to a remote target
	Headers map[string]string

	// Options are engine protocol options, frozen once a session starts
	Options map[string]any

	// Monitor overrides the reachability monitor. Nil selects the default
	// dial-probe monitor for URL endpoints.
	Monitor NetworkMonitor
}

// Validate checks the configuration for structural problems
func (c *ReplicationConfiguration) Validate() error {
	if c.Database == nil {
		return ErrNoDatabase
	}
	if c.Target == nil {
		return ErrNoTarget
	}
	if c.Type < TypePushAndPull || c.Type > TypePull {
		return ErrBadDirection
	}
	if url, ok := c.Target.(*URLEndpoint); ok {
		if err := url.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// clone returns a deep copy of the configuration
func (c *ReplicationConfiguration) clone() *ReplicationConfiguration {
	out := *c
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	if c.Options != nil {
		out.Options = cloneOptions(c.Options)
	}
	return &out
}

// cloneOptions deep-copies an options map (nested maps and slices included)
func cloneOptions(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneOptionValue(v)
	}
	return out
}

func cloneOptionValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneOptions(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneOptionValue(item)
		}
		return out
	default:
		return val
	}
}

// ConfigFile is the YAML representation of a replication relationship
// against a remote target.
type ConfigFile struct {
	Target     URLEndpoint       `yaml:"target" validate:"required"`
	Type       string            `yaml:"type" validate:"omitempty,oneof=pushAndPull push pull"`
	Continuous bool              `yaml:"continuous"`
	Headers    map[string]string `yaml:"headers"`
	Options    map[string]any    `yaml:"options"`
	Auth       *AuthConfig       `yaml:"auth"`
}

// AuthConfig selects and parameterizes an authenticator
type AuthConfig struct {
	Type     string `yaml:"type" validate:"required,oneof=basic session jwt"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Session  string `yaml:"session"`
	Cookie   string `yaml:"cookie"`
	Secret   string `yaml:"secret"`
	Subject  string `yaml:"subject"`
}

// LoadConfigFile reads and validates a YAML replication config
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML config bytes
func ParseConfig(data []byte) (*ConfigFile, error) {
	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(&cf); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cf, nil
}

// ToConfiguration builds a ReplicationConfiguration bound to the given
// local database.
func (cf *ConfigFile) ToConfiguration(db Database) (*ReplicationConfiguration, error) {
	repType, err := ParseReplicatorType(cf.Type)
	if err != nil {
		return nil, err
	}

	target := cf.Target
	cfg := &ReplicationConfiguration{
		Database:   db,
		Target:     &target,
		Type:       repType,
		Continuous: cf.Continuous,
		Headers:    cf.Headers,
		Options:    cf.Options,
	}

	if cf.Auth != nil {
		auth, err := cf.Auth.build()
		if err != nil {
			return nil, err
		}
		cfg.Authenticator = auth
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// build constructs the configured authenticator
func (a *AuthConfig) build() (Authenticator, error) {
	switch a.Type {
	case "basic":
		return NewBasicAuthenticator(a.Username, a.Password), nil
	case "session":
		return NewSessionAuthenticator(a.Session, a.Cookie), nil
	case "jwt":
		return NewJWTAuthenticator(a.Secret, a.Subject, 0)
	default:
		return nil, fmt.Errorf("unknown auth type: %q", a.Type)
	}
}
