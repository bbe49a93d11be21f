package status

// ErrorCode classifies API errors in a stable, numeric way.
type ErrorCode int

// Reserved ranges by domain:
//   0-999:     validation (400)
//   1000-1999: not found / empty state (404)
//   2000-2999: conflicts (409)
//   9000-9999: internal / upstream (500)

const (
	ExamTopicRequired ErrorCode = iota // 0
	ExamInvalidRequestBody
	DocumentFileRequired
	DocumentNoTextExtracted
	SessionInvalidRequestBody
	AttemptInvalidSelection
	AttemptSelectionRequired
)

const (
	ExamEmptyIndex ErrorCode = 1000 + iota // 1000
	SessionNotFound
	AttemptNotFound
)

const (
	AttemptInProgress ErrorCode = 2000 + iota // 2000
)

const (
	Internal ErrorCode = 9000 + iota // 9000
	UpstreamEmbedding
	UpstreamSearch
	UpstreamChat
	UpstreamOCR
	ChatBadFormat
)

// CodedError carries an ErrorCode alongside the underlying error.
type CodedError interface {
	error
	ErrorCode() ErrorCode
}

type codedError struct {
	code ErrorCode
	err  error
}

func (e codedError) Error() string        { return e.err.Error() }
func (e codedError) Unwrap() error        { return e.err }
func (e codedError) ErrorCode() ErrorCode { return e.code }

// New wraps err with a code; nil in, nil out.
func New(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return codedError{code: code, err: err}
}
