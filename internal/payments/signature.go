package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignWebhook is the hex HMAC-SHA256 of the raw webhook body.
func SignWebhook(body []byte, secret string) string {
	return sign(body, secret)
}

// SignClient is the hex HMAC-SHA256 of "<gateway order id>|<gateway payment id>".
func SignClient(gatewayOrderID, gatewayPaymentID, secret string) string {
	return sign([]byte(gatewayOrderID+"|"+gatewayPaymentID), secret)
}

func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return signatureMatches(SignWebhook(body, secret), signature, secret)
}

func VerifyClientSignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	return signatureMatches(SignClient(gatewayOrderID, gatewayPaymentID, secret), signature, secret)
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signatureMatches(expected, received, secret string) bool {
	if secret == "" {
		return false
	}
	received = strings.ToLower(strings.TrimSpace(received))
	if received == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(received))
}
