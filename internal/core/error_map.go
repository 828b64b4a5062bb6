package core

import (
	"github.com/mark3labs/mcp-go/mcp"
)

type ErrorInfo struct {
	Code    string
	Message string
	RPCCode int
	Soft    bool
}

// MapError translates err into the JSON-RPC error code and the soft/hard
// decision used by the dispatcher.
func MapError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: string(KindInternal), Message: "internal error", RPCCode: mcp.INTERNAL_ERROR}
	}

	kind := KindOf(err)
	info := ErrorInfo{Code: string(kind), Message: err.Error(), Soft: IsSoft(err)}
	switch kind {
	case KindInvalidArgument:
		info.RPCCode = mcp.INVALID_PARAMS
	case KindUnknownTool:
		info.RPCCode = mcp.METHOD_NOT_FOUND
	default:
		info.RPCCode = mcp.INTERNAL_ERROR
	}
	return info
}
