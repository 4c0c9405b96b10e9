package entity

import "time"

// Status is the e-Factura lifecycle state. The literals match the values the
// UI and the database already use, so they are part of the storage contract.
type Status string

const (
	// StatusNew: local record exists but nothing was sent yet ("nproc").
	StatusNew Status = "nproc"
	// StatusValidated: XML built and accepted by the remote schema validator.
	StatusValidated Status = "validated"
	// StatusUploaded: submitted to ANAF, awaiting authority-side processing.
	StatusUploaded Status = "uploaded"
	// StatusValid: ANAF confirmed processing; a download index is available.
	StatusValid Status = "valid"
	// StatusStored: result archive retrieved and attached. Terminal, also used
	// for inbound invoices once reconciled against a local expense.
	StatusStored Status = "store"
)

// EFactura is the 1:1 electronic-invoicing sub-record of an Invoice (outbound
// flow) or of a NationalExpense (inbound flow). Mutated only by the state
// machine; every transition is written as a single row update.
type EFactura struct {
	ID         string
	InvoiceID  *string // set for outbound documents
	ExpenseID  *string // set for inbound documents
	Status     Status
	UploadID   string // index_incarcare assigned by the gateway on submission
	DownloadID string // id_descarcare assigned once ANAF validated the upload
	XML        string // serialized UBL payload; transient, cleared after upload
	Attachment string // path of the stored result archive
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
