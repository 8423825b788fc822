package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"kennapartner-api/internal/storage"
)

// Request schemas. Validation failures surface as 422 with the field named
// in the message.

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req loginRequest) validate() error {
	if strings.TrimSpace(req.Username) == "" {
		return errors.New("username is required")
	}
	if req.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

type bookRequest struct {
	Name         string `json:"name"`
	Introduction string `json:"introduction"`
	Preface      string `json:"preface"`
	Foreword     string `json:"foreword"`
	Author       string `json:"author"`
	Date         string `json:"date"`
}

func (req bookRequest) validate() (storage.BookInput, error) {
	if strings.TrimSpace(req.Name) == "" {
		return storage.BookInput{}, errors.New("name is required")
	}
	if strings.TrimSpace(req.Date) == "" {
		return storage.BookInput{}, errors.New("date is required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return storage.BookInput{}, err
	}
	return storage.BookInput{
		Name:         req.Name,
		Introduction: req.Introduction,
		Preface:      req.Preface,
		Foreword:     req.Foreword,
		Author:       req.Author,
		Date:         date,
	}, nil
}

// parseDate accepts RFC 3339 timestamps and bare calendar dates.
func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not a valid timestamp", value)
}

type newsRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (req newsRequest) validate() (storage.NewsInput, error) {
	if strings.TrimSpace(req.Title) == "" {
		return storage.NewsInput{}, errors.New("title is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return storage.NewsInput{}, errors.New("content is required")
	}
	return storage.NewsInput{Title: req.Title, Content: req.Content}, nil
}

type authorRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type insightRequest struct {
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Authors []authorRequest `json:"authors"`
}

func (req insightRequest) validate() (storage.InsightInput, error) {
	if strings.TrimSpace(req.Title) == "" {
		return storage.InsightInput{}, errors.New("title is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return storage.InsightInput{}, errors.New("content is required")
	}
	if req.Authors == nil {
		return storage.InsightInput{}, errors.New("authors is required")
	}
	authors := make([]storage.AuthorInput, 0, len(req.Authors))
	for i, author := range req.Authors {
		input, err := author.validate()
		if err != nil {
			return storage.InsightInput{}, fmt.Errorf("authors[%d]: %w", i, err)
		}
		authors = append(authors, input)
	}
	return storage.InsightInput{Title: req.Title, Content: req.Content, Authors: authors}, nil
}

func (req authorRequest) validate() (storage.AuthorInput, error) {
	if strings.TrimSpace(req.FullName) == "" {
		return storage.AuthorInput{}, errors.New("full_name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return storage.AuthorInput{}, errors.New("email is required")
	}
	if !strings.Contains(email, "@") {
		return storage.AuthorInput{}, fmt.Errorf("email %q is not valid", req.Email)
	}
	return storage.AuthorInput{FullName: req.FullName, Email: email}, nil
}
