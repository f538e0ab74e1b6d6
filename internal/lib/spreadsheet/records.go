package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/deppfellow/aquaservice/internal/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RowError reports why one spreadsheet row was rejected.
// Row is the 1-based row number as shown by spreadsheet programs.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ClientRecord is a client row read from an import file.
type ClientRecord struct {
	Row       int
	Name      string
	TaxID     string
	Email     string
	Phone     string
	Address   string
	City      string
	Notes     string
	Latitude  *float64
	Longitude *float64
}

// TechnicianRecord is a technician row read from an import file.
type TechnicianRecord struct {
	Row       int
	Name      string
	Email     string
	Phone     string
	Address   string
	Skills    []string
	Latitude  *float64
	Longitude *float64
}

// headerAliases maps normalized header spellings to a canonical field.
var headerAliases = map[string]string{
	"name": "name", "nombre": "name", "razon_social": "name", "cliente": "name", "tecnico": "name", "full_name": "name",
	"tax_id": "tax_id", "cuit": "tax_id", "cuil": "tax_id", "dni": "tax_id", "rut": "tax_id",
	"email": "email", "e_mail": "email", "mail": "email", "correo": "email", "correo_electronico": "email",
	"phone": "phone", "telefono": "phone", "tel": "phone", "celular": "phone", "mobile": "phone",
	"address": "address", "direccion": "address", "domicilio": "address", "calle": "address",
	"city": "city", "ciudad": "city", "localidad": "city",
	"notes": "notes", "notas": "notes", "observaciones": "notes", "comments": "notes",
	"skills": "skills", "habilidades": "skills", "especialidades": "skills", "especialidad": "skills",
	"lat": "latitude", "latitude": "latitude", "latitud": "latitude",
	"lng": "longitude", "lon": "longitude", "long": "longitude", "longitude": "longitude", "longitud": "longitude",
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader lowercases, strips accents and joins words with "_":
// "Razón Social" -> "razon_social".
func NormalizeHeader(header string) string {
	stripped, _, err := transform.String(accentStripper, header)
	if err != nil {
		stripped = header
	}
	fields := strings.FieldsFunc(strings.ToLower(stripped), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "_")
}

// sheet indexes a header row.
type sheet struct {
	columns map[string]int
	rows    [][]string
}

func newSheet(rows [][]string, required ...string) (*sheet, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	s := &sheet{columns: map[string]int{}, rows: rows[1:]}
	for i, h := range rows[0] {
		if field, ok := headerAliases[NormalizeHeader(h)]; ok {
			if _, dup := s.columns[field]; !dup {
				s.columns[field] = i
			}
		}
	}

	for _, field := range required {
		if _, ok := s.columns[field]; !ok {
			return nil, fmt.Errorf("missing required column %q", field)
		}
	}
	return s, nil
}

func (s *sheet) value(row []string, field string) string {
	idx, ok := s.columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (s *sheet) float(row []string, field string) (*float64, error) {
	raw := s.value(row, field)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not a number", field, raw)
	}
	return &v, nil
}

func (s *sheet) coordinates(row []string) (*float64, *float64, error) {
	lat, err := s.float(row, "latitude")
	if err != nil {
		return nil, nil, err
	}
	lng, err := s.float(row, "longitude")
	if err != nil {
		return nil, nil, err
	}
	if (lat == nil) != (lng == nil) {
		return nil, nil, fmt.Errorf("latitude and longitude must be given together")
	}
	return lat, lng, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseClients maps rows to client records. Structural problems in a row
// (bad numbers, missing name) are returned as RowErrors; field validation
// is left to the caller.
func ParseClients(rows [][]string) ([]ClientRecord, []RowError, error) {
	s, err := newSheet(rows, "name")
	if err != nil {
		return nil, nil, err
	}

	var (
		records []ClientRecord
		rowErrs []RowError
	)
	for i, row := range s.rows {
		rowNum := i + 2
		if blank(row) {
			continue
		}

		rec := ClientRecord{
			Row:     rowNum,
			Name:    s.value(row, "name"),
			TaxID:   s.value(row, "tax_id"),
			Email:   strings.ToLower(s.value(row, "email")),
			Phone:   s.value(row, "phone"),
			Address: s.value(row, "address"),
			City:    s.value(row, "city"),
			Notes:   s.value(row, "notes"),
		}
		if rec.Name == "" {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: "name is required"})
			continue
		}
		if rec.Latitude, rec.Longitude, err = s.coordinates(row); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

// ParseTechnicians maps rows to technician records. Skills may be
// separated by commas, semicolons, pipes or slashes.
func ParseTechnicians(rows [][]string) ([]TechnicianRecord, []RowError, error) {
	s, err := newSheet(rows, "name", "email")
	if err != nil {
		return nil, nil, err
	}

	var (
		records []TechnicianRecord
		rowErrs []RowError
	)
	for i, row := range s.rows {
		rowNum := i + 2
		if blank(row) {
			continue
		}

		rec := TechnicianRecord{
			Row:     rowNum,
			Name:    s.value(row, "name"),
			Email:   strings.ToLower(s.value(row, "email")),
			Phone:   s.value(row, "phone"),
			Address: s.value(row, "address"),
			Skills:  splitSkills(s.value(row, "skills")),
		}
		if rec.Name == "" || rec.Email == "" {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: "name and email are required"})
			continue
		}
		if rec.Latitude, rec.Longitude, err = s.coordinates(row); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func splitSkills(raw string) []string {
	return model.NormalizeSkills(strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '/'
	}))
}
