package mcp

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/docuverse/internal/errors"
)

// decode unmarshals tool arguments into T. Unknown argument names and
// mistyped values come back as INVALID_REQUEST errors naming the argument.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	if len(args) == 0 {
		return result, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return result, errors.NewInvalidRequest("arguments are not JSON: " + err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return result, errors.NewInvalidRequest(fmt.Sprintf("argument %q must be %s", typeErr.Field, typeErr.Type))
		}
		// "json: unknown field \"txt\""
		return result, errors.NewInvalidRequest(strings.TrimPrefix(err.Error(), "json: "))
	}
	return result, nil
}
