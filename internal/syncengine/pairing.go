package syncengine

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/spacedriveapp/sdcore/internal/wire"
)

// challengeClaims is the claim set carried inside a pairing handshake's
// signed JWT: the signature is over Challenge (the peer's nonce), and
// RegisteredClaims supplies the standard exp/iat window so a replayed
// handshake message is rejected once stale — the same ServiceClaims-
// embeds-RegisteredClaims shape R3E-Network/service_layer uses for
// service-to-service tokens, repurposed here for device-to-device
// pairing.
type challengeClaims struct {
	Challenge string `json:"challenge"`
	jwt.RegisteredClaims
}

const challengeTTL = 2 * time.Minute

// Pairing performs the Ed25519 challenge/response device-pairing
// handshake described in spec.md §6: the initiator presents a public key
// and a challenge; the responder signs it and replies with its own
// challenge; each side verifies the other's signature before emitting
// Complete{success}.
type Pairing struct {
	localDeviceID string
	signingKey    ed25519.PrivateKey
	publicKey     ed25519.PublicKey
}

// NewPairing constructs a Pairing for localDeviceID using the device's
// long-term Ed25519 keypair.
func NewPairing(localDeviceID string, signingKey ed25519.PrivateKey) *Pairing {
	return &Pairing{
		localDeviceID: localDeviceID,
		signingKey:    signingKey,
		publicKey:     signingKey.Public().(ed25519.PublicKey),
	}
}

// NewChallenge generates a fresh random nonce for the peer to sign.
func NewChallenge() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("syncengine: generate challenge: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// BuildRequest starts a handshake: it generates a fresh challenge for the
// responder to sign and returns the PairingRequestPayload to send.
func (p *Pairing) BuildRequest(slug, platform string) (wire.PairingRequestPayload, error) {
	challenge, err := NewChallenge()
	if err != nil {
		return wire.PairingRequestPayload{}, err
	}

	return wire.PairingRequestPayload{
		DeviceID:     p.localDeviceID,
		Slug:         slug,
		Platform:     platform,
		PublicKeyHex: hex.EncodeToString(p.publicKey),
		ChallengeHex: challenge,
	}, nil
}

// BuildResponse answers a PairingRequest: it signs the initiator's
// challenge as a JWT and mints its own challenge for mutual
// authentication.
func (p *Pairing) BuildResponse(slug, platform string, req wire.PairingRequestPayload) (wire.PairingResponsePayload, error) {
	signed, err := p.signChallenge(req.ChallengeHex)
	if err != nil {
		return wire.PairingResponsePayload{}, err
	}

	challenge, err := NewChallenge()
	if err != nil {
		return wire.PairingResponsePayload{}, err
	}

	return wire.PairingResponsePayload{
		DeviceID:     p.localDeviceID,
		Slug:         slug,
		Platform:     platform,
		PublicKeyHex: hex.EncodeToString(p.publicKey),
		SignatureJWT: signed,
		ChallengeHex: challenge,
	}, nil
}

// VerifyResponse checks that resp.SignatureJWT signs the challenge this
// Pairing originally sent in BuildRequest, using resp's advertised public
// key.
func (p *Pairing) VerifyResponse(originalChallenge string, resp wire.PairingResponsePayload) error {
	peerKey, err := hex.DecodeString(resp.PublicKeyHex)
	if err != nil {
		return fmt.Errorf("syncengine: decode peer public key: %w", err)
	}

	return verifyChallenge(ed25519.PublicKey(peerKey), originalChallenge, resp.SignatureJWT)
}

// signChallenge signs challenge as an Ed25519 JWT (alg EdDSA) with a
// short expiry, so a captured handshake message can't be replayed after
// challengeTTL elapses.
func (p *Pairing) signChallenge(challenge string) (string, error) {
	now := time.Now()

	claims := challengeClaims{
		Challenge: challenge,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(challengeTTL)),
			Subject:   p.localDeviceID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)

	signed, err := token.SignedString(p.signingKey)
	if err != nil {
		return "", fmt.Errorf("syncengine: sign challenge: %w", err)
	}

	return signed, nil
}

// verifyChallenge checks that signedJWT is a valid, unexpired EdDSA
// signature over challenge by peerKey.
func verifyChallenge(peerKey ed25519.PublicKey, challenge, signedJWT string) error {
	var claims challengeClaims

	token, err := jwt.ParseWithClaims(signedJWT, &claims, func(t *jwt.Token) (any, error) {
		return peerKey, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return fmt.Errorf("syncengine: verify challenge signature: %w", err)
	}

	if !token.Valid {
		return fmt.Errorf("syncengine: challenge signature invalid")
	}

	if claims.Challenge != challenge {
		return fmt.Errorf("syncengine: signed challenge does not match issued challenge")
	}

	return nil
}
