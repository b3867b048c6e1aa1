package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
)

// RS256 is the only signing algorithm the service accepts. Asymmetric signing
// lets resource services verify access tokens with the public key alone.
const RS256 = "RS256"

// KeyPair holds the RSA key material used for signing and verification.
// It is loaded once at startup and never mutated.
type KeyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// GenerateRSAKeyPair generates a new RSA key pair for RS256 signing.
func GenerateRSAKeyPair(keyID string, bits int) (*KeyPair, error) {
	if bits < 2048 {
		bits = 2048
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.Wrap(err, "[GenerateRSAKeyPair] rsa.GenerateKey")
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// LoadKeyPairFromPEM loads a key pair from PEM-encoded strings. The private
// key may be PKCS#1 or PKCS#8; the public key PKIX or PKCS#1.
func LoadKeyPairFromPEM(keyID, privateKeyPEM, publicKeyPEM string) (*KeyPair, error) {
	privateKey, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadKeyPairFromPEM] private key")
	}
	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadKeyPairFromPEM] public key")
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  publicKey,
	}, nil
}

// LoadKeyPairFromFiles reads both PEM files and loads the key pair.
func LoadKeyPairFromFiles(keyID, privateKeyPath, publicKeyPath string) (*KeyPair, error) {
	privatePEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadKeyPairFromFiles] read private key")
	}
	publicPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadKeyPairFromFiles] read public key")
	}
	return LoadKeyPairFromPEM(keyID, string(privatePEM), string(publicPEM))
}

// ExportPrivateKeyPEM exports the RSA private key as PKCS#1 PEM.
func (kp *KeyPair) ExportPrivateKeyPEM() string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(kp.PrivateKey),
	}))
}

// ExportPublicKeyPEM exports the public key as PKIX PEM.
func (kp *KeyPair) ExportPublicKeyPEM() (string, error) {
	pubKeyBytes, err := x509.MarshalPKIXPublicKey(kp.PublicKey)
	if err != nil {
		return "", errors.Wrap(err, "[ExportPublicKeyPEM] marshal public key")
	}

	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyBytes,
	})), nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("PKCS#8 key is not RSA")
		}
		return rsaKey, nil
	default:
		return nil, errors.Errorf("unsupported private key type %q", block.Type)
	}
}

func parseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("not an RSA public key")
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, errors.Errorf("unsupported public key type %q", block.Type)
	}
}
