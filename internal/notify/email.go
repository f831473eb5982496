package notify

import "fmt"

// ConfirmationSubject builds the subject line for an issuance confirmation
func ConfirmationSubject(reference string) string {
	return fmt.Sprintf("AuthorHash Certificate Issued — %s", reference)
}

// AccessLinkSubject is the subject line for a certificate-retrieval link
const AccessLinkSubject = "Your AuthorHash Certificates — Libris Ventures"

// ConfirmationBody builds the HTML body sent after a certificate is issued
func ConfirmationBody(reference, contentHash, verifyURL string) string {
	return fmt.Sprintf(`
        <div style="font-family: 'Helvetica Neue', sans-serif; max-width: 600px; margin: 0 auto;">
            <div style="background: #0A2F1F; padding: 24px; text-align: center;">
                <h1 style="color: #F5F5F0; font-size: 20px; margin: 0;">LIBRIS VENTURES</h1>
                <p style="color: #D4AF37; font-size: 12px; margin: 4px 0 0;">Certificate of Anteriority</p>
            </div>
            <div style="padding: 32px; background: #fff;">
                <h2 style="color: #0A2F1F; margin-top: 0;">Certificate Issued</h2>
                <p style="color: #333;">Your AuthorHash certificate has been successfully registered.</p>

                <div style="background: #f5f5f0; padding: 16px; margin: 16px 0; border-left: 4px solid #D4AF37;">
                    <p style="margin: 0; font-size: 12px; color: #666; text-transform: uppercase;">Certificate Reference</p>
                    <p style="margin: 4px 0 0; font-size: 18px; font-weight: bold; color: #0A2F1F; font-family: monospace;">%s</p>
                </div>

                <div style="background: #f5f5f0; padding: 16px; margin: 16px 0;">
                    <p style="margin: 0; font-size: 12px; color: #666; text-transform: uppercase;">SHA-256 Fingerprint</p>
                    <p style="margin: 4px 0 0; font-size: 11px; color: #0A2F1F; font-family: monospace; word-break: break-all;">%s</p>
                </div>

                <p style="color: #333; font-size: 14px;">
                    <strong>Blockchain status:</strong> Pending — submitted for anchoring, awaiting block confirmation (~12h).
                </p>

                <p style="color: #333; font-size: 14px;">
                    <a href="%s" style="color: #D4AF37;">Verify your certificate</a>
                </p>

                <div style="margin-top: 24px; padding-top: 16px; border-top: 1px solid #eee; font-size: 12px; color: #999;">
                    <p><strong>Important:</strong> Archive the exact file version that generated this hash. Any modification will produce a different fingerprint and invalidate your proof.</p>
                </div>
            </div>
            <div style="background: #0A2F1F; padding: 16px; text-align: center;">
                <p style="color: #F5F5F0; font-size: 11px; margin: 0;">Libris Ventures LLC &bull; Wyoming, USA &bull; libris.ventures</p>
            </div>
        </div>
    `, reference, contentHash, verifyURL)
}

// AccessLinkBody builds the HTML body carrying a certificate-retrieval link
func AccessLinkBody(accessURL string) string {
	return fmt.Sprintf(`
        <div style="font-family: 'Helvetica Neue', sans-serif; max-width: 600px; margin: 0 auto;">
            <div style="background: #0A2F1F; padding: 24px; text-align: center;">
                <h1 style="color: #F5F5F0; font-size: 20px; margin: 0;">LIBRIS VENTURES</h1>
                <p style="color: #D4AF37; font-size: 12px; margin: 4px 0 0;">My Certificates</p>
            </div>
            <div style="padding: 32px; background: #fff;">
                <p style="color: #333;">Click the link below to view all AuthorHash certificates registered with this email address:</p>

                <div style="text-align: center; margin: 24px 0;">
                    <a href="%s" style="display: inline-block; background: #0A2F1F; color: #F5F5F0; padding: 12px 32px; text-decoration: none; font-weight: bold; text-transform: uppercase; font-size: 13px; letter-spacing: 2px;">
                        View My Certificates
                    </a>
                </div>

                <p style="color: #999; font-size: 12px;">This link is valid for 30 minutes. If you didn't request this, you can safely ignore this email.</p>
            </div>
            <div style="background: #0A2F1F; padding: 16px; text-align: center;">
                <p style="color: #F5F5F0; font-size: 11px; margin: 0;">Libris Ventures LLC &bull; Wyoming, USA &bull; libris.ventures</p>
            </div>
        </div>
    `, accessURL)
}
