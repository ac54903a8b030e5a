package nlp

import "errors"

var (
	errNoJSON  = errors.New("model reply contained no JSON object")
	errBadJSON = errors.New("model reply contained unparsable JSON")
)
