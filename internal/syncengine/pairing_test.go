package syncengine

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	return priv
}

func TestPairingHandshakeSucceeds(t *testing.T) {
	initiator := NewPairing("device-a", genKey(t))
	responder := NewPairing("device-b", genKey(t))

	req, err := initiator.BuildRequest("laptop", "linux")
	require.NoError(t, err)

	resp, err := responder.BuildResponse("desktop", "linux", req)
	require.NoError(t, err)

	require.NoError(t, initiator.VerifyResponse(req.ChallengeHex, resp))
}

func TestPairingRejectsWrongSigningKey(t *testing.T) {
	initiator := NewPairing("device-a", genKey(t))
	responder := NewPairing("device-b", genKey(t))

	req, err := initiator.BuildRequest("laptop", "linux")
	require.NoError(t, err)

	resp, err := responder.BuildResponse("desktop", "linux", req)
	require.NoError(t, err)

	// Tamper with the advertised public key so it no longer matches the
	// signing key that actually produced resp.SignatureJWT.
	impostor := NewPairing("device-c", genKey(t))

	tampered := resp
	tampered.PublicKeyHex = hexEncodePub(impostor)

	require.Error(t, initiator.VerifyResponse(req.ChallengeHex, tampered))
}

func TestPairingRejectsMismatchedChallenge(t *testing.T) {
	initiator := NewPairing("device-a", genKey(t))
	responder := NewPairing("device-b", genKey(t))

	req, err := initiator.BuildRequest("laptop", "linux")
	require.NoError(t, err)

	resp, err := responder.BuildResponse("desktop", "linux", req)
	require.NoError(t, err)

	require.Error(t, initiator.VerifyResponse("not-the-original-challenge", resp))
}

func TestPairingRejectsGarbageSignature(t *testing.T) {
	initiator := NewPairing("device-a", genKey(t))
	responder := NewPairing("device-b", genKey(t))

	req, err := initiator.BuildRequest("laptop", "linux")
	require.NoError(t, err)

	resp, err := responder.BuildResponse("desktop", "linux", req)
	require.NoError(t, err)

	resp.SignatureJWT = "not-a-jwt"

	require.Error(t, initiator.VerifyResponse(req.ChallengeHex, resp))
}

func hexEncodePub(p *Pairing) string {
	req, _ := p.BuildRequest("x", "x")
	return req.PublicKeyHex
}
