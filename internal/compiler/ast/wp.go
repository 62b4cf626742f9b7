package ast

// WordPress idioms shared by every generated controller.

// NewWPError is "new WP_Error('code', 'message', array('status' => status))"
func NewWPError(code, message string, status int64) *New {
	return NewNew("WP_Error",
		NewString(code),
		NewString(message),
		Arr(KV("status", NewInt(status))),
	)
}

// ReturnWPError returns a new WP_Error
func ReturnWPError(code, message string, status int64) *Return {
	return NewReturn(NewWPError(code, message, status))
}

// IsWPError is "is_wp_error($name)"
func IsWPError(name string) *FuncCall {
	return NewFuncCall("is_wp_error", NewVariable(name))
}

// ReturnIfWPError is "if (is_wp_error($name)) { return $name; }"
func ReturnIfWPError(name string) *If {
	return NewIf(IsWPError(name), NewReturn(NewVariable(name)))
}

// GetParam is "$request->get_param('name')"
func GetParam(name string) *MethodCall {
	return NewMethodCall(NewVariable("request"), "get_param", NewString(name))
}
