package notifications

import (
	"context"
	"fmt"
	"time"
)

// OTPMessage carries a delivery confirmation code to its recipient.
type OTPMessage struct {
	ToAddress    string
	ToName       string
	TrackingCode string
	Code         string
	ExpiresAt    time.Time
}

// OTPNotifier formats delivery codes as email.
type OTPNotifier struct {
	mailer Mailer
}

func NewOTPNotifier(mailer Mailer) (*OTPNotifier, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	return &OTPNotifier{mailer: mailer}, nil
}

func (n *OTPNotifier) SendDeliveryOTP(ctx context.Context, msg OTPMessage) error {
	minutes := int(time.Until(msg.ExpiresAt).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	text := fmt.Sprintf(
		"Your QuickCart delivery %s is almost there.\nShare this code with the driver to confirm delivery: %s\nThe code expires in %d minutes.",
		msg.TrackingCode, msg.Code, minutes,
	)
	html := fmt.Sprintf(
		"<p>Your QuickCart delivery <strong>%s</strong> is almost there.</p><p>Share this code with the driver to confirm delivery:</p><h2>%s</h2><p>The code expires in %d minutes.</p>",
		msg.TrackingCode, msg.Code, minutes,
	)
	return n.mailer.Send(ctx, Email{
		ToAddress: msg.ToAddress,
		ToName:    msg.ToName,
		Subject:   "Your delivery code",
		Text:      text,
		HTML:      html,
	})
}
