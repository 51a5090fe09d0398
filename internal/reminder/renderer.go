package reminder

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/shopspring/decimal"
)

const subjectPrefix = "[SubReminder]"

// Locale selects the language of rendered reminders.
type Locale string

const (
	LocaleKorean  Locale = "ko"
	LocaleEnglish Locale = "en"
)

func ParseLocale(s string) (Locale, error) {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case "", LocaleKorean:
		return LocaleKorean, nil
	case LocaleEnglish:
		return LocaleEnglish, nil
	}
	return "", fmt.Errorf("%w: unsupported locale %q", domain.ErrValidation, s)
}

// Message is a rendered reminder. Body is HTML for email and plain text for SMS.
type Message struct {
	Subject string
	Body    string
}

// RenderInput is everything the renderer needs for one candidate.
type RenderInput struct {
	Subscription domain.Subscription
	Rule         domain.ReminderRule
	Recipient    domain.RecipientProfile
}

type copyText struct {
	heading     string
	greeting    string
	renews      string
	amount      string
	notice      string
	subject     string
	sms         string
	today       string
	daysBefore  string
	diagSubject string
	diagBody    string
	diagSMS     string
}

var copies = map[Locale]copyText{
	LocaleKorean: {
		heading:     "구독 결제일 알림",
		greeting:    "%s님, 안녕하세요.",
		renews:      "구독이 <strong>%s</strong>에 갱신됩니다.",
		amount:      "금액",
		notice:      "%s 알림입니다.",
		subject:     "%s %s 결제일 %s",
		sms:         "%s %s 구독이 %s에 갱신됩니다. 금액: %s %s",
		today:       "오늘",
		daysBefore:  "%d일 전",
		diagSubject: "%s 테스트 알림",
		diagBody:    "알림 채널 연결 확인용 테스트 메시지입니다 (%s).",
		diagSMS:     "%s 알림 채널 연결 확인용 테스트 메시지입니다 (%s).",
	},
	LocaleEnglish: {
		heading:     "Subscription renewal reminder",
		greeting:    "Hi %s,",
		renews:      "renews on <strong>%s</strong>.",
		amount:      "Amount",
		notice:      "This is your %s reminder.",
		subject:     "%s %s payment reminder (%s)",
		sms:         "%s %s renews on %s. Amount: %s %s",
		today:       "today",
		daysBefore:  "%d days before",
		diagSubject: "%s Test notification",
		diagBody:    "This is a test message to verify notification channel connectivity (%s).",
		diagSMS:     "%s Test message to verify notification channel connectivity (%s).",
	},
}

var zeroDecimalCurrencies = map[string]bool{
	"KRW": true,
	"JPY": true,
	"VND": true,
}

type emailView struct {
	Heading  string
	Greeting string
	Service  string
	Plan     string
	Renews   template.HTML
	Amount   string
	Notice   string
}

var emailTemplate = template.Must(template.New("email").Parse(
	`<h2>{{.Heading}}</h2>` +
		`{{if .Greeting}}<p>{{.Greeting}}</p>{{end}}` +
		`<p><strong>{{.Service}}</strong>{{if .Plan}} ({{.Plan}}){{end}} {{.Renews}}</p>` +
		`<p>{{.Amount}}</p>` +
		`<p>{{.Notice}}</p>`,
))

// Renderer builds localized reminder messages. It has no side effects.
type Renderer struct {
	locale Locale
	copy   copyText
}

func NewRenderer(locale Locale) *Renderer {
	c, ok := copies[locale]
	if !ok {
		locale = LocaleKorean
		c = copies[LocaleKorean]
	}
	return &Renderer{locale: locale, copy: c}
}

func (r *Renderer) Locale() Locale { return r.locale }

// OffsetLabel renders the offset as "today" for 0 and "N days before" otherwise.
func (r *Renderer) OffsetLabel(offsetDays int) string {
	if offsetDays == 0 {
		return r.copy.today
	}
	return fmt.Sprintf(r.copy.daysBefore, offsetDays)
}

// Render produces the subject and body for one reminder on the rule's channel.
func (r *Renderer) Render(in RenderInput) Message {
	sub := in.Subscription
	label := r.OffsetLabel(in.Rule.OffsetDays)
	date := domain.FormatDate(sub.RenewalDate)
	price := FormatPrice(sub.Price, sub.Currency)
	currency := strings.ToUpper(strings.TrimSpace(sub.Currency))

	subject := fmt.Sprintf(r.copy.subject, subjectPrefix, sub.ServiceName, label)

	if in.Rule.Channel == domain.ChannelSMS {
		return Message{
			Subject: subject,
			Body:    fmt.Sprintf(r.copy.sms, subjectPrefix, sub.DisplayName(), date, price, currency),
		}
	}

	return Message{
		Subject: subject,
		Body:    r.renderEmail(sub, in.Recipient, date, price, currency, label),
	}
}

// RenderDiagnostic produces the synthetic message used by diagnostic runs.
func (r *Renderer) RenderDiagnostic(channel domain.Channel, referenceDate time.Time) Message {
	date := domain.FormatDate(referenceDate)
	subject := fmt.Sprintf(r.copy.diagSubject, subjectPrefix)

	if channel == domain.ChannelSMS {
		return Message{Subject: subject, Body: fmt.Sprintf(r.copy.diagSMS, subjectPrefix, date)}
	}
	body := "<h2>" + template.HTMLEscapeString(domain.DiagnosticSubscriptionName) + "</h2>" +
		"<p>" + template.HTMLEscapeString(fmt.Sprintf(r.copy.diagBody, date)) + "</p>"
	return Message{Subject: subject, Body: body}
}

func (r *Renderer) renderEmail(
	sub domain.Subscription,
	recipient domain.RecipientProfile,
	date string,
	price string,
	currency string,
	label string,
) string {
	view := emailView{
		Heading: r.copy.heading,
		Service: sub.ServiceName,
		Renews:  template.HTML(fmt.Sprintf(r.copy.renews, template.HTMLEscapeString(date))),
		Amount:  fmt.Sprintf("%s: %s %s", r.copy.amount, price, currency),
		Notice:  fmt.Sprintf(r.copy.notice, label),
	}
	if sub.PlanName != nil {
		view.Plan = strings.TrimSpace(*sub.PlanName)
	}
	if name := strings.TrimSpace(recipient.DisplayName); name != "" {
		view.Greeting = fmt.Sprintf(r.copy.greeting, name)
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		// The template is static; fall back to escaped text rather than failing a send.
		return template.HTMLEscapeString(fmt.Sprintf("%s %s %s %s", sub.DisplayName(), date, view.Amount, view.Notice))
	}
	return buf.String()
}

// FormatPrice renders price with the minor-unit precision of currency.
func FormatPrice(price decimal.Decimal, currency string) string {
	if zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))] {
		return price.StringFixed(0)
	}
	return price.StringFixed(2)
}
