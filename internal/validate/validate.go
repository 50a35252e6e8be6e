// Package validate provides functions to validate claim submissions, document files, and notes.
package validate

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// MaxDocumentBytes caps a single uploaded document.
const MaxDocumentBytes = 10 << 20

var (
	phoneRx    = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)
	filenameRx = regexp.MustCompile(`^[^/\\\x00]{1,200}$`)
)

// allowedDocumentTypes mirrors the portal file picker: PDF and JPEG only.
var allowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
}

// Required checks that v is non-empty after trimming whitespace.
func Required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s required", field)
	}
	return nil
}

// Email checks that v parses as a single bare address.
func Email(v string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(v))
	if err != nil || addr.Name != "" {
		return errors.New("invalid email address")
	}
	return nil
}

// Phone checks that v looks like a phone number.
func Phone(v string) error {
	if !phoneRx.MatchString(strings.TrimSpace(v)) {
		return errors.New("invalid phone number")
	}
	return nil
}

// ClaimAmount parses v as a non-negative number.
func ClaimAmount(v string) (float64, error) {
	amt, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(amt) || math.IsInf(amt, 0) {
		return 0, errors.New("claimAmount must be numeric")
	}
	if amt < 0 {
		return 0, errors.New("claimAmount must not be negative")
	}
	return amt, nil
}

// RejectionDate checks for a YYYY-MM-DD date.
func RejectionDate(v string) error {
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(v)); err != nil {
		return errors.New("rejectionDate must be YYYY-MM-DD")
	}
	return nil
}

// Submission validates every customer field and returns the parsed claim amount.
func Submission(s models.Submission) (float64, error) {
	validators := []func() error{
		func() error { return Required("name", s.Name) },
		func() error { return Email(s.Email) },
		func() error { return Phone(s.Phone) },
		func() error { return Required("policyNumber", s.PolicyNumber) },
		func() error { return Required("insuranceCompany", s.InsuranceCompany) },
		func() error { return RejectionDate(s.RejectionDate) },
		func() error { return Required("rejectionReason", s.RejectionReason) },
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return 0, err
		}
	}
	return ClaimAmount(s.ClaimAmount)
}

// Filename checks that fn is a plain, non-empty file name.
func Filename(fn string) error {
	if !filenameRx.MatchString(fn) || filepath.Base(fn) != fn {
		return errors.New("invalid file name")
	}
	return nil
}

// DocumentContentType checks the MIME type against the PDF/JPEG allow-list.
func DocumentContentType(ct string) error {
	if !allowedDocumentTypes[strings.TrimSpace(strings.ToLower(ct))] {
		return errors.New("only PDF and JPEG files are allowed")
	}
	return nil
}

// DocumentSize checks that a document is non-empty and within MaxDocumentBytes.
func DocumentSize(n int64) error {
	if n <= 0 {
		return errors.New("empty file")
	}
	if n > MaxDocumentBytes {
		return fmt.Errorf("file exceeds %d bytes", MaxDocumentBytes)
	}
	return nil
}

// Document validates one uploaded file.
func Document(f models.FileUpload) error {
	if err := Filename(f.Name); err != nil {
		return err
	}
	if err := DocumentContentType(f.ContentType); err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	if err := DocumentSize(int64(len(f.Data))); err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	return nil
}

// Documents validates each file in order and stops at the first failure.
func Documents(files []models.FileUpload) error {
	for _, f := range files {
		if err := Document(f); err != nil {
			return err
		}
	}
	return nil
}

// NoteText checks that a note has content after trimming.
func NoteText(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("note text required")
	}
	return nil
}
