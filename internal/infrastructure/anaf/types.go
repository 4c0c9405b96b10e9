// Package anaf implements the client for the national e-Factura web service
// (ANAF SPV). Expected remote rejections travel in result structs; Go errors
// are reserved for transport-level failures.
package anaf

import "encoding/xml"

// header is the XML status envelope ANAF wraps around upload and status
// replies. Fields are attributes, names are part of the wire contract.
type header struct {
	XMLName        xml.Name      `xml:"header"`
	Stare          string        `xml:"stare,attr"`
	IndexIncarcare string        `xml:"index_incarcare,attr"`
	IDDescarcare   string        `xml:"id_descarcare,attr"`
	Errors         []headerError `xml:"Errors"`
}

type headerError struct {
	ErrorMessage string `xml:"errorMessage,attr"`
}

func (h *header) errorMessages() []string {
	out := make([]string, 0, len(h.Errors))
	for _, e := range h.Errors {
		if e.ErrorMessage != "" {
			out = append(out, e.ErrorMessage)
		}
	}
	return out
}

// validateReply is the JSON body of the schema-validation endpoint.
type validateReply struct {
	Stare    string `json:"stare"`
	Messages []struct {
		Message string `json:"message"`
	} `json:"Messages"`
}

// listReply is the JSON body of the inbound listing endpoint.
type listReply struct {
	Eroare string           `json:"eroare"`
	Mesaje []InboundMessage `json:"mesaje"`
}

// InboundMessage is one inbound notification from the SPV listing.
type InboundMessage struct {
	ID        string `json:"id"`            // download id for the referenced archive
	RequestID string `json:"id_solicitare"` // upload index; names the XML inside the archive
	CIF       string `json:"cif"`
	Type      string `json:"tip"` // FACTURA PRIMITA, ERORI FACTURA, ...
	Details   string `json:"detalii"`
	CreatedAt string `json:"data_creare"`
}

// ValidateResult is the outcome of the schema-validation call.
type ValidateResult struct {
	Ok     bool
	Errors []string // validator messages when not Ok
}

// UploadResult is the outcome of a submission.
type UploadResult struct {
	Ok       bool
	UploadID string // index_incarcare
	Errors   []string
}

// StatusResult is the outcome of a status poll.
type StatusResult struct {
	Ok         bool
	Stare      string // raw status token ("ok", "nok", "in prelucrare")
	DownloadID string // id_descarcare, set when Ok
	Errors     []string
}

// DownloadResult is the outcome of a result-archive download.
type DownloadResult struct {
	Ok     bool
	Zip    []byte
	Errors []string
}

// ListResult is the outcome of the inbound listing.
type ListResult struct {
	Ok       bool
	Messages []InboundMessage
	Errors   []string
}
