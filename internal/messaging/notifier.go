package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultAdminEmail receives the internal mirror of every confirmation.
	DefaultAdminEmail = "admin@anandpandey.in"
	// DefaultPortalURL is the client dashboard linked from confirmations.
	DefaultPortalURL = "https://www.thetaxjournal.in/dashboard"
)

// Outcome holds the results of the user message and its admin mirror.
// Admin is the zero Result when no mirror is sent.
type Outcome struct {
	User  Result
	Admin Result
}

// OK reports whether every attempted send succeeded.
func (o Outcome) OK() bool {
	return o.User.OK() && o.Admin.OK()
}

// Booking is a confirmed consultation request.
type Booking struct {
	Name          string
	Email         string
	Date          string
	Time          string
	Branch        string
	ReferenceCode string
}

// Proposal is a submitted request for proposal.
type Proposal struct {
	FirstName    string
	LastName     string
	Email        string
	Organization string
	Category     string
}

// FullName joins first and last name.
func (p Proposal) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ApplicationNotice acknowledges a job application.
type ApplicationNotice struct {
	Name     string
	Email    string
	JobTitle string
}

// StatusNotice tells a user their inquiry or application moved.
type StatusNotice struct {
	Name  string
	Email string
	// Subject names what changed, e.g. "Consultation" or the job title.
	Subject   string
	Reference string
	Status    string
}

// Notifier renders and sends the branded transactional messages.
type Notifier struct {
	sender     Sender
	adminEmail string
	portalURL  string
	log        *zap.Logger
	now        func() time.Time
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithAdminEmail sets the mirror recipient.
func WithAdminEmail(email string) NotifierOption {
	return func(n *Notifier) {
		if email != "" {
			n.adminEmail = email
		}
	}
}

// WithPortalURL sets the dashboard link.
func WithPortalURL(u string) NotifierOption {
	return func(n *Notifier) {
		if u != "" {
			n.portalURL = u
		}
	}
}

// WithNotifierLogger sets the logger.
func WithNotifierLogger(l *zap.Logger) NotifierOption {
	return func(n *Notifier) { n.log = l }
}

// WithNotifierClock sets the clock used for the footer year.
func WithNotifierClock(now func() time.Time) NotifierOption {
	return func(n *Notifier) { n.now = now }
}

// NewNotifier creates a Notifier on top of sender.
func NewNotifier(sender Sender, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		sender:     sender,
		adminEmail: DefaultAdminEmail,
		portalURL:  DefaultPortalURL,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AdminEmail returns the mirror recipient.
func (n *Notifier) AdminEmail() string {
	return n.adminEmail
}

// BookingConfirmation confirms a consultation and alerts the admin.
func (n *Notifier) BookingConfirmation(ctx context.Context, b Booking) (Outcome, error) {
	date := FormatDate(b.Date)
	html, err := n.render(Executive{
		Headline:      "Mandate Authorized",
		RecipientName: b.Name,
		Body:          "We confirm that your request for a strategic consultation has been logged in our secure matrix. A Senior Partner has been notified of this engagement.",
		Rows: []Row{
			{Label: "Reference ID", Value: b.ReferenceCode},
			{Label: "Branch Chamber", Value: b.Branch},
			{Label: "Date", Value: date},
			{Label: "Time", Value: b.Time},
			{Label: "Context", Value: "Strategic Legal Consultation"},
		},
		CTA: &CTA{Text: "ACCESS CLIENT PORTAL", URL: n.portalURL},
	})
	if err != nil {
		return Outcome{}, err
	}
	return n.pair(ctx,
		Message{To: b.Email, Subject: "Mandate Authorized: Consultation " + b.ReferenceCode, HTML: html},
		Message{
			To:      n.adminEmail,
			Subject: "URGENT: New Appointment - " + b.ReferenceCode,
			HTML:    string(Emphasize("<p>New appointment request from %s.</p>", b.Name)) + "<p>" + plain(Row{Label: "Date", Value: date}) + "</p>",
			ReplyTo: b.Email,
		},
	), nil
}

// ProposalAcknowledgement acknowledges an RFP and alerts the admin.
func (n *Notifier) ProposalAcknowledgement(ctx context.Context, p Proposal) (Outcome, error) {
	name := p.FullName()
	html, err := n.render(Executive{
		Headline:      "Proposal Transmission Received",
		RecipientName: name,
		Body: Emphasize("We have successfully received your strategic proposal request regarding %s for %s. "+
			"We are currently evaluating professional audit support for our organization and are keen to understand "+
			"how we can assist you with high-quality, compliant, and value-driven assurance solutions.", p.Category, p.Organization),
		Rows: []Row{
			{Label: "Organization", Value: p.Organization},
			{Label: "Engagement Type", Value: p.Category},
			{Label: "Status", Value: "Partner Review Pending"},
			{Label: "Liaison", Value: name},
		},
	})
	if err != nil {
		return Outcome{}, err
	}
	return n.pair(ctx,
		Message{To: p.Email, Subject: "RFP Received: Strategic Partnership Mandate", HTML: html},
		Message{
			To:      n.adminEmail,
			Subject: "NEW RFP: " + p.Organization,
			HTML:    plain(Row{Label: "RFP Category", Value: p.Category}, Row{Label: "Contact", Value: fmt.Sprintf("%s (%s)", name, p.Email)}),
			ReplyTo: p.Email,
		},
	), nil
}

// ApplicationAcknowledgement acknowledges a job application and alerts the
// admin.
func (n *Notifier) ApplicationAcknowledgement(ctx context.Context, a ApplicationNotice) (Outcome, error) {
	html, err := n.render(Executive{
		Headline:      "Dossier Filed Successfully",
		RecipientName: a.Name,
		Body: Emphasize("Your credentials for the position of %s have been securely filed in our candidate matrix. "+
			"The Recruitment Board will review your academic and professional history shortly.", a.JobTitle),
		Rows: []Row{
			{Label: "Position Mandate", Value: a.JobTitle},
			{Label: "Applicant", Value: a.Name},
			{Label: "Current Status", Value: "Under Review"},
		},
		CTA: &CTA{Text: "VIEW APPLICATION STATUS", URL: n.portalURL},
	})
	if err != nil {
		return Outcome{}, err
	}
	return n.pair(ctx,
		Message{To: a.Email, Subject: "Dossier Authorized: " + a.JobTitle, HTML: html},
		Message{
			To:      n.adminEmail,
			Subject: "NEW APPLICATION: " + a.JobTitle,
			HTML:    plain(Row{Label: "Applicant", Value: a.Name}, Row{Label: "Email", Value: a.Email}),
			ReplyTo: a.Email,
		},
	), nil
}

// StatusChange tells the user their matter moved and mirrors it to the admin.
func (n *Notifier) StatusChange(ctx context.Context, s StatusNotice) (Outcome, error) {
	html, err := n.render(Executive{
		Headline:      "Status Updated",
		RecipientName: s.Name,
		Body:          Emphasize("The status of %s has been updated to %s.", s.Subject, s.Status),
		Rows: []Row{
			{Label: "Reference ID", Value: s.Reference},
			{Label: "Matter", Value: s.Subject},
			{Label: "Current Status", Value: s.Status},
		},
		CTA: &CTA{Text: "ACCESS CLIENT PORTAL", URL: n.portalURL},
	})
	if err != nil {
		return Outcome{}, err
	}
	return n.pair(ctx,
		Message{To: s.Email, Subject: fmt.Sprintf("Status Update: %s %s", s.Subject, s.Reference), HTML: html},
		Message{
			To:      n.adminEmail,
			Subject: fmt.Sprintf("STATUS CHANGE: %s - %s", s.Reference, s.Status),
			HTML:    plain(Row{Label: "Recipient", Value: s.Email}, Row{Label: "Matter", Value: s.Subject}),
		},
	), nil
}

// VerificationCode sends a one-time code to the user only.
func (n *Notifier) VerificationCode(ctx context.Context, email, name, code string) (Outcome, error) {
	html, err := n.render(Executive{
		Headline:      "Verify Your Identity",
		RecipientName: name,
		Body:          Emphasize("Use the code %s to complete your sign-in. It expires shortly and can be used once.", code),
	})
	if err != nil {
		return Outcome{}, err
	}
	res := n.sender.Send(ctx, Message{To: email, Subject: "Your verification code", HTML: html})
	n.report("verification code", res)
	return Outcome{User: res}, nil
}

func (n *Notifier) render(e Executive) (string, error) {
	e.Year = n.now().Year()
	return e.Render()
}

// pair sends the user message and the admin mirror concurrently.
func (n *Notifier) pair(ctx context.Context, user, admin Message) Outcome {
	var out Outcome
	var g errgroup.Group
	g.Go(func() error {
		out.User = n.sender.Send(ctx, user)
		return nil
	})
	g.Go(func() error {
		out.Admin = n.sender.Send(ctx, admin)
		return nil
	})
	_ = g.Wait()

	n.report(user.Subject, out.User)
	n.report(admin.Subject, out.Admin)
	return out
}

func (n *Notifier) report(subject string, res Result) {
	if res.OK() {
		return
	}
	n.log.Warn("email delivery failed",
		zap.String("subject", subject),
		zap.String("kind", string(res.Err.Kind)),
		zap.Error(res.Err),
	)
}

// FormatDate renders an ISO date as "1 June 2025". Unparseable input is
// returned unchanged.
func FormatDate(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2 January 2006")
		}
	}
	return s
}
