package mailer

import (
	"fmt"
	"html"
	"time"
)

// FormatPaise renders an amount in paise as a rupee string, e.g. "₹8,500.00"
// without grouping for simplicity: "₹8500.00".
func FormatPaise(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}

// WelcomeEmail greets a newly activated tenant.
func WelcomeEmail(studentName, propertyName string) (subject, body string) {
	subject = "Welcome to " + propertyName
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your stay at <strong>%s</strong> is now active. You can find your entry QR code in the RentEase app.</p>",
		html.EscapeString(studentName), html.EscapeString(propertyName),
	)
	return subject, body
}

// InvoiceEmail announces a freshly generated monthly invoice.
func InvoiceEmail(studentName string, month time.Time, total int64, dueDate time.Time) (subject, body string) {
	subject = fmt.Sprintf("Your rent invoice for %s", month.Format("January 2006"))
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your invoice for %s is ready: <strong>%s</strong>, due by %s.</p>",
		html.EscapeString(studentName), month.Format("January 2006"), FormatPaise(total), dueDate.Format("2 Jan 2006"),
	)
	return subject, body
}

// ReminderEmail nudges a tenant about an unpaid invoice.
func ReminderEmail(studentName string, total int64, dueDate time.Time) (subject, body string) {
	subject = "Reminder: rent payment pending"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your rent of <strong>%s</strong> was due on %s and is still unpaid. Please pay soon to avoid a late fee.</p>",
		html.EscapeString(studentName), FormatPaise(total), dueDate.Format("2 Jan 2006"),
	)
	return subject, body
}

// LateFeeEmail informs a tenant that a late fee was applied.
func LateFeeEmail(studentName string, lateFee, total int64) (subject, body string) {
	subject = "Late fee applied to your rent invoice"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>A late fee of <strong>%s</strong> was added to your overdue invoice. The amount payable is now <strong>%s</strong>.</p>",
		html.EscapeString(studentName), FormatPaise(lateFee), FormatPaise(total),
	)
	return subject, body
}

// PaymentSuccessEmail confirms a captured payment.
func PaymentSuccessEmail(studentName string, amount int64, month time.Time) (subject, body string) {
	subject = "Payment received"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>We received your payment of <strong>%s</strong> for %s. Thank you!</p>",
		html.EscapeString(studentName), FormatPaise(amount), month.Format("January 2006"),
	)
	return subject, body
}

// PaymentFailedEmail reports a failed gateway payment.
func PaymentFailedEmail(studentName string, amount int64) (subject, body string) {
	subject = "Payment failed"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your payment of <strong>%s</strong> could not be processed. Please retry from the app.</p>",
		html.EscapeString(studentName), FormatPaise(amount),
	)
	return subject, body
}

// ScanAlertEmail notifies an owner about a curfew violation at the gate.
func ScanAlertEmail(ownerName, studentName, propertyName string, at time.Time) (subject, body string) {
	subject = "Curfew violation at " + propertyName
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p><strong>%s</strong> left <strong>%s</strong> during curfew hours at %s.</p>",
		html.EscapeString(ownerName), html.EscapeString(studentName),
		html.EscapeString(propertyName), at.Format("2 Jan 2006 15:04"),
	)
	return subject, body
}
