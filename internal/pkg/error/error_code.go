package error

const (
	SUCCESS = 0

	// 400xx request errors
	BAD_REQUEST_BODY   = 40000
	BAD_REQUEST_PARAMS = 40001

	// 401xx / 403xx auth
	UNAUTHORIZED    = 40100
	INVALID_SESSION = 40102
	FORBIDDEN       = 40300

	// 404xx / 409xx resources
	NOT_FOUND = 40400
	CONFLICT  = 40900

	// 500xx server
	INTERNAL_ERROR      = 50000
	DATABASE_ERROR      = 50001
	SERVICE_UNAVAILABLE = 50002

	// 502xx / 504xx upstream
	EXTERNAL_REQUEST_ERROR = 50200
	GATEWAY_TIMEOUT        = 50400
)
