package service

import (
	"context"
	"errors"
	"io"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/deppfellow/aquaservice/internal/lib/spreadsheet"
	"github.com/deppfellow/aquaservice/internal/sqlerr"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/rs/zerolog"
)

// ImportResult reports how many rows were stored and why the rest were not.
type ImportResult struct {
	Created int                    `json:"created"`
	Errors  []spreadsheet.RowError `json:"errors"`
}

// ImportService bulk-loads clients and technicians from spreadsheets.
// Each row is stored independently; a bad row never aborts the file.
type ImportService struct {
	clients     *ClientService
	technicians *TechnicianService
	logger      *zerolog.Logger
}

func NewImportService(clients *ClientService, technicians *TechnicianService, logger *zerolog.Logger) *ImportService {
	return &ImportService{clients: clients, technicians: technicians, logger: logger}
}

func readUpload(r io.Reader, filename string) ([][]string, error) {
	rows, err := spreadsheet.ReadRows(r, filename)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFile) {
			return nil, errs.NewBadRequestError(err.Error(), true, errs.Ptr(errs.CodeUnsupportedFile), nil, nil)
		}
		return nil, errs.NewBadRequestError("Could not read file: "+err.Error(), true, nil, nil, nil)
	}
	return rows, nil
}

// rowError turns a failed insert into a message safe to show the user.
func rowError(row int, err error) spreadsheet.RowError {
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		errors.As(sqlerr.HandleError(err), &httpErr)
	}
	return spreadsheet.RowError{Row: row, Message: httpErr.Message}
}

func (s *ImportService) ImportClients(ctx context.Context, r io.Reader, filename string, geocode bool) (*ImportResult, error) {
	rows, err := readUpload(r, filename)
	if err != nil {
		return nil, err
	}
	records, rowErrs, err := spreadsheet.ParseClients(rows)
	if err != nil {
		return nil, errs.NewBadRequestError(err.Error(), true, nil, nil, nil)
	}

	result := &ImportResult{Errors: append([]spreadsheet.RowError{}, rowErrs...)}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		in := &ClientInput{
			Name:      rec.Name,
			Email:     rec.Email,
			Phone:     rec.Phone,
			Address:   rec.Address,
			City:      rec.City,
			Notes:     rec.Notes,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
		}
		if rec.TaxID != "" {
			taxID := rec.TaxID
			in.TaxID = &taxID
		}
		if err := in.Validate(); err != nil {
			result.Errors = append(result.Errors, spreadsheet.RowError{Row: rec.Row, Message: validation.Describe(err)})
			continue
		}
		if _, err := s.clients.Create(ctx, in, geocode); err != nil {
			result.Errors = append(result.Errors, rowError(rec.Row, err))
			continue
		}
		result.Created++
	}

	s.logger.Info().
		Str("file", filename).
		Int("created", result.Created).
		Int("rejected", len(result.Errors)).
		Msg("client import finished")
	return result, nil
}

func (s *ImportService) ImportTechnicians(ctx context.Context, r io.Reader, filename string, geocode bool) (*ImportResult, error) {
	rows, err := readUpload(r, filename)
	if err != nil {
		return nil, err
	}
	records, rowErrs, err := spreadsheet.ParseTechnicians(rows)
	if err != nil {
		return nil, errs.NewBadRequestError(err.Error(), true, nil, nil, nil)
	}

	result := &ImportResult{Errors: append([]spreadsheet.RowError{}, rowErrs...)}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		in := &TechnicianInput{
			Name:      rec.Name,
			Email:     rec.Email,
			Phone:     rec.Phone,
			Address:   rec.Address,
			Skills:    rec.Skills,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
		}
		if err := in.Validate(); err != nil {
			result.Errors = append(result.Errors, spreadsheet.RowError{Row: rec.Row, Message: validation.Describe(err)})
			continue
		}
		if _, err := s.technicians.Create(ctx, in, geocode); err != nil {
			result.Errors = append(result.Errors, rowError(rec.Row, err))
			continue
		}
		result.Created++
	}

	s.logger.Info().
		Str("file", filename).
		Int("created", result.Created).
		Int("rejected", len(result.Errors)).
		Msg("technician import finished")
	return result, nil
}
