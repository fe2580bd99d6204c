package status

// HTTPError carries a status code alongside the message, letting request
// handlers fail with a concrete response status.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest                   = NewError(BadRequest, "bad request")
	ErrUnauthorized                 = NewError(Unauthorized, "unauthorized")
	ErrForbidden                    = NewError(Forbidden, "forbidden")
	ErrNotFound                     = NewError(NotFound, "not found")
	ErrMethodNotAllowed             = NewError(MethodNotAllowed, "method not allowed")
	ErrRequestEntityTooLarge        = NewError(RequestEntityTooLarge, "request entity too large")
	ErrUnsupportedMediaType         = NewError(UnsupportedMediaType, "unsupported media type")
	ErrRequestedRangeNotSatisfiable = NewError(RequestedRangeNotSatisfiable, "requested range is not satisfiable")
	ErrUnprocessableEntity          = NewError(UnprocessableEntity, "unprocessable entity")
	ErrInternalServerError          = NewError(InternalServerError, "internal server error")
	ErrNotImplemented               = NewError(NotImplemented, "not implemented")
)
