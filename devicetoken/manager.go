package devicetoken

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenInvalid is returned when a device token fails signature or
// claim validation.
var ErrTokenInvalid = errors.New("invalid device token")

// ErrTokenExpired is returned when a device token is past its expiry.
var ErrTokenExpired = errors.New("device token expired")

// Config holds device-token signing parameters. Ed25519 is the only
// supported method; the keys are provisioned per device install.
type Config struct {
	TTL        time.Duration
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration
}

// Claims is the payload of a biometric device assertion. The backend
// verifies the binding between DeviceID and the user before issuing a
// fresh session.
type Claims struct {
	UserID    string `json:"uid"`
	ProfileID string `json:"pid,omitempty"`
	DeviceID  string `json:"did"`
	jwt.RegisteredClaims
}

// Manager issues and parses ed25519-signed device assertion tokens.
// A Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
}

// NewManager validates the signing configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	priv, err := parseEdPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	pub, err := parseEdPublicKey(cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Manager{config: cfg, priv: priv, pub: pub}, nil
}

// Issue mints a signed device assertion bound to the given user, profile
// and device install.
func (m *Manager) Issue(userID, profileID, deviceID string) (string, error) {
	if userID == "" || deviceID == "" {
		return "", errors.New("userID and deviceID are required")
	}

	now := time.Now()
	claims := Claims{
		UserID:    userID,
		ProfileID: profileID,
		DeviceID:  deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(m.priv)
}

// Parse verifies the signature and standard claims of a device token.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.pub, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.DeviceID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("ed25519 private key must be 64 bytes")
	}
	return ed25519.PrivateKey(key), nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, errors.New("ed25519 public key must be 32 bytes")
	}
	return ed25519.PublicKey(key), nil
}
