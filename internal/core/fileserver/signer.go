package fileserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer generates and validates signed archive-download tokens, so a
// success payload can carry a URL that works without request headers.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign creates a token encoding job_id, user_id, and expiry.
func (s *Signer) Sign(jobID, userID string, expiry time.Time) string {
	payload := fmt.Sprintf("%s|%s|%d", jobID, userID, expiry.Unix())
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	return base64.URLEncoding.EncodeToString([]byte(payload)) + "." + sig
}

// Verify validates a token and returns the decoded fields.
func (s *Signer) Verify(token string) (jobID, userID string, err error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid token format")
	}

	payloadBytes, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("invalid token encoding")
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payloadBytes)
	expectedSig := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(parts[1]), []byte(expectedSig)) {
		return "", "", fmt.Errorf("invalid signature")
	}

	fields := strings.SplitN(string(payloadBytes), "|", 3)
	if len(fields) != 3 {
		return "", "", fmt.Errorf("invalid payload")
	}

	expiryUnix, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("invalid expiry")
	}
	if time.Now().Unix() > expiryUnix {
		return "", "", fmt.Errorf("token expired")
	}

	return fields[0], fields[1], nil
}
