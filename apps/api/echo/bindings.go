package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
)

func formatMB(mb int64) string {
	return fmt.Sprintf("%dM", mb)
}

// pathID reads a numeric path parameter; anything else is a 404.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryInt reads an optional numeric query parameter.
func queryInt(ctx echo.Context, name string) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a number"})
	}
	return v, nil
}

// formFile buffers an uploaded multipart file. A missing optional file yields a nil reader.
func formFile(ctx echo.Context, field string, required bool) (io.Reader, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			if required {
				return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: errFileRequired})
			}
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading form file %s", field)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening form file %s", field)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading form file %s", field)
	}
	return bytes.NewReader(data), nil
}

type msgResponse struct {
	Msg string `json:"msg"`
}
