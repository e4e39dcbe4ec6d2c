package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	debtorimport "condo-backoffice/internal/debtorimport/domain"
)

var (
	// ErrUnsupportedFormat is returned for files that are not xlsx, xls or csv.
	ErrUnsupportedFormat = errors.New("sheet: unsupported file format")
	// ErrNoHeader is returned when the file has no header row.
	ErrNoHeader = errors.New("sheet: missing header row")
	// ErrMissingColumn is returned when a required column is not found.
	ErrMissingColumn = errors.New("sheet: missing required column")
)

// Field names used as header alias keys.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldBillDate      = "bill_date"
	FieldDueDate       = "due_date"
	FieldUnitNumber    = "unit_number"
	FieldItemCode      = "item_code"
	FieldServiceName   = "service_name"
	FieldDescription   = "description"
	FieldAmount        = "amount"
)

var requiredFields = []string{FieldUnitNumber, FieldAmount, FieldBillDate, FieldDueDate}

func defaultAliases() map[string][]string {
	return map[string][]string{
		FieldInvoiceNumber: {"invoice", "invoice no", "invoice number", "bill no", "เลขที่ใบแจ้งหนี้", "เลขที่เอกสาร"},
		FieldBillDate:      {"bill date", "invoice date", "date", "วันที่", "วันที่เอกสาร", "วันที่ใบแจ้งหนี้"},
		FieldDueDate:       {"due date", "due", "วันครบกำหนด", "ครบกำหนดชำระ", "วันที่ครบกำหนด"},
		FieldUnitNumber:    {"unit", "unit no", "unit number", "room", "ห้อง", "เลขที่ห้อง", "บ้านเลขที่"},
		FieldItemCode:      {"item code", "code", "รหัส", "รหัสรายการ"},
		FieldServiceName:   {"service", "service name", "item", "รายการ", "ชื่อบริการ"},
		FieldDescription:   {"description", "detail", "remark", "รายละเอียด", "หมายเหตุ"},
		FieldAmount:        {"amount", "total", "outstanding", "balance", "ยอดเงิน", "จำนวนเงิน", "ยอดค้างชำระ"},
	}
}

// Result is a parsed upload. Issues lists cells that could not be read; the
// affected fields are left empty on the row.
type Result struct {
	Rows   []debtorimport.ImportRow
	Issues []string
}

// Parser turns uploaded spreadsheets into import rows.
type Parser struct {
	aliases map[string]string
}

// NewParser builds a parser. extra adds header aliases per field name on top
// of the built-in English and Thai ones.
func NewParser(extra map[string][]string) (*Parser, error) {
	all := defaultAliases()
	for field, aliases := range extra {
		if _, ok := all[field]; !ok {
			return nil, fmt.Errorf("sheet: unknown header field %q", field)
		}
		all[field] = append(append([]string(nil), aliases...), all[field]...)
	}
	p := &Parser{aliases: make(map[string]string)}
	for field, aliases := range all {
		p.aliases[normalizeHeader(field)] = field
		for _, alias := range aliases {
			key := normalizeHeader(alias)
			if _, taken := p.aliases[key]; !taken {
				p.aliases[key] = field
			}
		}
	}
	return p, nil
}

// Parse reads the first sheet of an xlsx, xls or csv file chosen by the file
// name's extension.
func (p *Parser) Parse(filename string, r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	var records [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(data)
	case ".xls":
		records, err = readXLS(data)
	case ".csv":
		records, err = readCSV(data)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return Result{}, err
	}
	return p.ParseRecords(records)
}

// ParseRecords maps a header row plus data rows to import rows. Row numbers
// are sheet row numbers, the header being row 1.
func (p *Parser) ParseRecords(records [][]string) (Result, error) {
	headerAt := -1
	for i, record := range records {
		if !blankRecord(record) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return Result{}, ErrNoHeader
	}
	columns := make(map[string]int)
	for i, cell := range records[headerAt] {
		field, ok := p.aliases[normalizeHeader(cell)]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}
	var missing []string
	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	var result Result
	for i := headerAt + 1; i < len(records); i++ {
		record := records[i]
		rowNumber := i + 1
		cell := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		issue := func(field, value string, err error) {
			result.Issues = append(result.Issues, fmt.Sprintf("row %d: %s %q: %v", rowNumber, field, value, err))
		}

		row := debtorimport.ImportRow{
			RowNumber:     rowNumber,
			InvoiceNumber: cell(FieldInvoiceNumber),
			UnitNumber:    cell(FieldUnitNumber),
			ItemCode:      cell(FieldItemCode),
			ServiceName:   cell(FieldServiceName),
			Description:   cell(FieldDescription),
		}
		if value := cell(FieldAmount); value != "" {
			amount, err := ParseAmount(value)
			if err != nil {
				issue(FieldAmount, value, err)
			} else {
				row.Amount.Decimal = amount
				row.Amount.Valid = true
			}
		}
		if value := cell(FieldBillDate); value != "" {
			date, err := ParseDate(value)
			if err != nil {
				issue(FieldBillDate, value, err)
			} else {
				row.BillDate = date
			}
		}
		if value := cell(FieldDueDate); value != "" {
			date, err := ParseDate(value)
			if err != nil {
				issue(FieldDueDate, value, err)
			} else {
				row.DueDate = date
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sheet: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sheet: open xls: %w", err)
	}
	if len(workbook.GetSheets()) == 0 {
		return nil, ErrNoHeader
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("sheet: read xls sheet: %w", err)
	}
	var records [][]string
	for _, row := range sheet.GetRows() {
		var record []string
		for _, col := range row.GetCols() {
			record = append(record, col.GetString())
		}
		records = append(records, record)
	}
	return records, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func normalizeHeader(value string) string {
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.NewReplacer("_", " ", ".", " ", ":", " ").Replace(value)
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
