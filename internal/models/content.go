package models

import (
	"fmt"
	"time"
)

type MessageType string

const (
	TypeText      MessageType = "text"
	TypeImage     MessageType = "image"
	TypeVideo     MessageType = "video"
	TypeAudio     MessageType = "audio"
	TypeFile      MessageType = "file"
	TypeLink      MessageType = "link"
	TypeSystem    MessageType = "system"
	TypeProposal  MessageType = "proposal"
	TypePayment   MessageType = "payment"
	TypeMilestone MessageType = "milestone"
	TypeReview    MessageType = "review"
	TypeContract  MessageType = "contract"
	TypeInvoice   MessageType = "invoice"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeAudio, TypeFile, TypeLink, TypeSystem,
		TypeProposal, TypePayment, TypeMilestone, TypeReview, TypeContract, TypeInvoice:
		return true
	}
	return false
}

// IsMedia reports whether the type carries a media attachment list.
func (t MessageType) IsMedia() bool {
	switch t {
	case TypeImage, TypeVideo, TypeAudio, TypeFile, TypeLink:
		return true
	}
	return false
}

type TextContent struct {
	Body string `bson:"body" json:"body"`
}

type MediaItem struct {
	URL       string `bson:"url" json:"url"`
	MimeType  string `bson:"mime_type" json:"mime_type"`
	FileName  string `bson:"file_name,omitempty" json:"file_name,omitempty"`
	SizeBytes int64  `bson:"size_bytes" json:"size_bytes"`
	Width     int    `bson:"width,omitempty" json:"width,omitempty"`
	Height    int    `bson:"height,omitempty" json:"height,omitempty"`
	Duration  int    `bson:"duration_secs,omitempty" json:"duration_secs,omitempty"`
}

type ProposalContent struct {
	Title        string   `bson:"title" json:"title"`
	Description  string   `bson:"description,omitempty" json:"description,omitempty"`
	AmountCents  int64    `bson:"amount_cents" json:"amount_cents"`
	Currency     string   `bson:"currency" json:"currency"`
	DeliveryDays int      `bson:"delivery_days,omitempty" json:"delivery_days,omitempty"`
	Deliverables []string `bson:"deliverables,omitempty" json:"deliverables,omitempty"`
	State        string   `bson:"state" json:"state"`
}

type PaymentContent struct {
	AmountCents int64  `bson:"amount_cents" json:"amount_cents"`
	Currency    string `bson:"currency" json:"currency"`
	Method      string `bson:"method,omitempty" json:"method,omitempty"`
	Reference   string `bson:"reference,omitempty" json:"reference,omitempty"`
	State       string `bson:"state" json:"state"`
}

type MilestoneContent struct {
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	AmountCents int64      `bson:"amount_cents" json:"amount_cents"`
	Currency    string     `bson:"currency" json:"currency"`
	DueDate     *time.Time `bson:"due_date,omitempty" json:"due_date,omitempty"`
	State       string     `bson:"state" json:"state"`
}

type ReviewContent struct {
	Rating  int    `bson:"rating" json:"rating"`
	Comment string `bson:"comment,omitempty" json:"comment,omitempty"`
}

type ContractContent struct {
	Title       string `bson:"title" json:"title"`
	DocumentURL string `bson:"document_url,omitempty" json:"document_url,omitempty"`
	Terms       string `bson:"terms,omitempty" json:"terms,omitempty"`
	State       string `bson:"state" json:"state"`
}

type InvoiceLine struct {
	Description string `bson:"description" json:"description"`
	Quantity    int    `bson:"quantity" json:"quantity"`
	UnitCents   int64  `bson:"unit_cents" json:"unit_cents"`
}

type InvoiceContent struct {
	Number      string        `bson:"number" json:"number"`
	AmountCents int64         `bson:"amount_cents" json:"amount_cents"`
	Currency    string        `bson:"currency" json:"currency"`
	DueDate     *time.Time    `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Lines       []InvoiceLine `bson:"lines,omitempty" json:"lines,omitempty"`
}

type SystemEvent struct {
	Event    string `bson:"event" json:"event"`
	ActorID  string `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	TargetID string `bson:"target_id,omitempty" json:"target_id,omitempty"`
}

// Content is a tagged union keyed by Kind: exactly one payload matching the
// kind is populated. Use the constructors; Validate rejects mismatches.
type Content struct {
	Kind      MessageType       `bson:"kind" json:"kind"`
	Text      *TextContent      `bson:"text,omitempty" json:"text,omitempty"`
	Media     []MediaItem       `bson:"media,omitempty" json:"media,omitempty"`
	Proposal  *ProposalContent  `bson:"proposal,omitempty" json:"proposal,omitempty"`
	Payment   *PaymentContent   `bson:"payment,omitempty" json:"payment,omitempty"`
	Milestone *MilestoneContent `bson:"milestone,omitempty" json:"milestone,omitempty"`
	Review    *ReviewContent    `bson:"review,omitempty" json:"review,omitempty"`
	Contract  *ContractContent  `bson:"contract,omitempty" json:"contract,omitempty"`
	Invoice   *InvoiceContent   `bson:"invoice,omitempty" json:"invoice,omitempty"`
	System    *SystemEvent      `bson:"system,omitempty" json:"system,omitempty"`
}

func NewTextContent(body string) Content {
	return Content{Kind: TypeText, Text: &TextContent{Body: body}}
}

func NewMediaContent(kind MessageType, items []MediaItem) Content {
	return Content{Kind: kind, Media: items}
}

func NewProposalContent(p ProposalContent) Content {
	return Content{Kind: TypeProposal, Proposal: &p}
}

func NewPaymentContent(p PaymentContent) Content {
	return Content{Kind: TypePayment, Payment: &p}
}

func NewMilestoneContent(m MilestoneContent) Content {
	return Content{Kind: TypeMilestone, Milestone: &m}
}

func NewReviewContent(r ReviewContent) Content {
	return Content{Kind: TypeReview, Review: &r}
}

func NewContractContent(c ContractContent) Content {
	return Content{Kind: TypeContract, Contract: &c}
}

func NewInvoiceContent(i InvoiceContent) Content {
	return Content{Kind: TypeInvoice, Invoice: &i}
}

func NewSystemContent(e SystemEvent) Content {
	return Content{Kind: TypeSystem, System: &e}
}

// DeletedMessageText is the fixed tombstone body a soft delete leaves behind.
const DeletedMessageText = "This message has been deleted"

func TombstoneContent() Content {
	return Content{Kind: TypeSystem, System: &SystemEvent{Event: "message_deleted"}}
}

func (c Content) populated() map[MessageType]bool {
	set := map[MessageType]bool{}
	if c.Text != nil {
		set[TypeText] = true
	}
	if len(c.Media) > 0 {
		set[c.Kind] = c.Kind.IsMedia()
	}
	if c.Proposal != nil {
		set[TypeProposal] = true
	}
	if c.Payment != nil {
		set[TypePayment] = true
	}
	if c.Milestone != nil {
		set[TypeMilestone] = true
	}
	if c.Review != nil {
		set[TypeReview] = true
	}
	if c.Contract != nil {
		set[TypeContract] = true
	}
	if c.Invoice != nil {
		set[TypeInvoice] = true
	}
	if c.System != nil {
		set[TypeSystem] = true
	}
	return set
}

// Validate checks that exactly the payload matching Kind is populated.
func (c Content) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("unknown content kind %q", c.Kind)
	}
	var payloads int
	if c.Text != nil {
		payloads++
	}
	if len(c.Media) > 0 {
		payloads++
	}
	if c.Proposal != nil {
		payloads++
	}
	if c.Payment != nil {
		payloads++
	}
	if c.Milestone != nil {
		payloads++
	}
	if c.Review != nil {
		payloads++
	}
	if c.Contract != nil {
		payloads++
	}
	if c.Invoice != nil {
		payloads++
	}
	if c.System != nil {
		payloads++
	}
	if payloads != 1 {
		return fmt.Errorf("content for kind %q must carry exactly one payload, got %d", c.Kind, payloads)
	}
	if !c.populated()[c.Kind] {
		return fmt.Errorf("content payload does not match kind %q", c.Kind)
	}
	return nil
}

const previewRuneLimit = 120

// Preview renders a short line for the conversation's last-message pointer.
func (c Content) Preview() string {
	switch c.Kind {
	case TypeText:
		// Truncation counts runes so a multi-byte character is never split.
		runes := []rune(c.Text.Body)
		if len(runes) > previewRuneLimit {
			return string(runes[:previewRuneLimit-3]) + "..."
		}
		return c.Text.Body
	case TypeImage:
		return "[image]"
	case TypeVideo:
		return "[video]"
	case TypeAudio:
		return "[audio]"
	case TypeFile:
		return "[file]"
	case TypeLink:
		return "[link]"
	case TypeProposal:
		return "[proposal] " + c.Proposal.Title
	case TypePayment:
		return "[payment]"
	case TypeMilestone:
		return "[milestone] " + c.Milestone.Title
	case TypeReview:
		return "[review]"
	case TypeContract:
		return "[contract] " + c.Contract.Title
	case TypeInvoice:
		return "[invoice] " + c.Invoice.Number
	case TypeSystem:
		if c.System.Event == "message_deleted" {
			return DeletedMessageText
		}
		return "[" + c.System.Event + "]"
	}
	return ""
}

// TextLength is the length the conversation's max-message-length restriction
// applies to; non-text payloads are not length-limited.
func (c Content) TextLength() int {
	if c.Kind == TypeText && c.Text != nil {
		return len(c.Text.Body)
	}
	return 0
}
