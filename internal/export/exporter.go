package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/ticketview"
)

// Format names a supported export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Renderer turns a dataset into an encoded document.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
}

// File is a rendered export ready to be served.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

var contentTypes = map[Format]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ParseFormat validates a requested format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	if raw == "" {
		return FormatCSV, nil
	}
	f := Format(raw)
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
	return f, nil
}

// Exporter dispatches to the renderer for each format.
type Exporter struct {
	renderers map[Format]Renderer
}

// NewExporter wires the CSV, PDF and XLSX renderers.
func NewExporter() *Exporter {
	return &Exporter{renderers: map[Format]Renderer{
		FormatCSV:  NewCSVExporter(),
		FormatPDF:  NewPDFExporter(),
		FormatXLSX: NewXLSXExporter(),
	}}
}

// Export renders the ticket table in the given format.
func (e *Exporter) Export(format Format, tickets []domain.Ticket, title string, now time.Time) (*File, error) {
	renderer, ok := e.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	body, err := renderer.Render(TicketDataset(tickets, now), title)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:        fmt.Sprintf("solicitacoes_%s.%s", now.Format("20060102_150405"), format),
		ContentType: contentTypes[format],
		Body:        body,
	}, nil
}

// Column headers of the ticket export.
const (
	ColumnSEI       = "Nº SEI"
	ColumnSIMP      = "Nº SIMP"
	ColumnOrg       = "Órgão Solicitante"
	ColumnType      = "Tipo"
	ColumnSubject   = "Assunto"
	ColumnPriority  = "Prioridade"
	ColumnStatus    = "Status"
	ColumnQueue     = "Posição na Fila"
	ColumnSubmitted = "Data de Recebimento"
	ColumnDays      = "Dias na Fila"
)

// TicketDataset flattens tickets into display rows.
func TicketDataset(tickets []domain.Ticket, now time.Time) Dataset {
	data := Dataset{
		Headers: []string{
			ColumnSEI, ColumnSIMP, ColumnOrg, ColumnType, ColumnSubject,
			ColumnPriority, ColumnStatus, ColumnQueue, ColumnSubmitted, ColumnDays,
		},
		Rows: make([]map[string]string, 0, len(tickets)),
	}
	for i := range tickets {
		t := &tickets[i]
		row := map[string]string{
			ColumnSEI:       t.OfficialNumberPrimary,
			ColumnOrg:       t.RequestingOrg,
			ColumnType:      t.RequestType,
			ColumnSubject:   t.Subject,
			ColumnPriority:  t.Priority.Label(),
			ColumnStatus:    t.Status.Label(),
			ColumnSubmitted: t.SubmissionTime().Format("02/01/2006"),
		}
		if t.OfficialNumberSecondary != nil {
			row[ColumnSIMP] = *t.OfficialNumberSecondary
		}
		if t.QueuePosition != nil {
			row[ColumnQueue] = strconv.Itoa(*t.QueuePosition)
		}
		if days, ok := ticketview.DaysInQueue(t, now); ok {
			row[ColumnDays] = strconv.Itoa(days)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}
