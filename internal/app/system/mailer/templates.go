// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// LinkEmailData fills the account mails, which all carry one action link.
type LinkEmailData struct {
	SiteName  string
	Name      string
	Link      string
	ExpiresIn string // e.g. "24 hours"
}

// BuildVerificationEmail asks a new customer to confirm their address.
func BuildVerificationEmail(to string, data LinkEmailData) Email {
	return buildLinkEmail(to, data, linkCopy{
		Subject: fmt.Sprintf("Verify your %s account", data.SiteName),
		Intro:   "Thanks for signing up. Please confirm your email address to finish creating your account.",
		Button:  "Verify email",
		Ignore:  "If you did not create an account, you can safely ignore this email.",
	})
}

// BuildPasswordResetEmail carries a one-time password reset link.
func BuildPasswordResetEmail(to string, data LinkEmailData) Email {
	return buildLinkEmail(to, data, linkCopy{
		Subject: fmt.Sprintf("Reset your %s password", data.SiteName),
		Intro:   "We received a request to reset your password. Use the link below to choose a new one.",
		Button:  "Reset password",
		Ignore:  "If you did not request a password reset, you can safely ignore this email. Your password will not change.",
	})
}

type linkCopy struct {
	Subject string
	Intro   string
	Button  string
	Ignore  string
}

func buildLinkEmail(to string, data LinkEmailData, c linkCopy) Email {
	return Email{
		To:       to,
		Subject:  c.Subject,
		TextBody: buildLinkText(data, c),
		HTMLBody: buildLinkHTML(data, c),
	}
}

func buildLinkText(data LinkEmailData, c linkCopy) string {
	var buf bytes.Buffer
	if data.Name != "" {
		fmt.Fprintf(&buf, "Hi %s,\n\n", data.Name)
	}
	buf.WriteString(c.Intro + "\n\n")
	buf.WriteString(data.Link + "\n\n")
	fmt.Fprintf(&buf, "This link expires in %s.\n\n", data.ExpiresIn)
	buf.WriteString(c.Ignore + "\n")
	return buf.String()
}

var linkHTML = template.Must(template.New("link").Parse(linkHTMLTemplate))

func buildLinkHTML(data LinkEmailData, c linkCopy) string {
	var buf bytes.Buffer
	_ = linkHTML.Execute(&buf, struct {
		LinkEmailData
		Copy linkCopy
	}{data, c})
	return buf.String()
}

const linkHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Copy.Subject}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #0f766e;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{if .Name}}<p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Hi {{.Name}},</p>{{end}}
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">{{.Copy.Intro}}</p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.Link}}" style="display: inline-block; padding: 14px 32px; background-color: #0f766e; color: #ffffff; text-decoration: none; font-size: 16px; border-radius: 6px;">{{.Copy.Button}}</a>
                  </td>
                </tr>
              </table>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">This link expires in {{.ExpiresIn}}.</p>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">{{.Copy.Ignore}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
