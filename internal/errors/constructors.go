package errors

// Convenience constructors for the error kinds of a generation run

// Configuration errors

func UnknownOption(root, key string) *AutoAPIError {
	return New(CategoryConfig, SeverityFatal, "unknown option").
		WithContext("root", root).
		WithContext("key", key)
}

func InvalidOption(root, key, reason string) *AutoAPIError {
	return New(CategoryConfig, SeverityFatal, "invalid option value").
		WithContext("root", root).
		WithContext("key", key).
		WithContext("reason", reason)
}

func InvalidOutputPath(root, path string) *AutoAPIError {
	return New(CategoryConfig, SeverityFatal, "invalid output path").
		WithContext("root", root).
		WithContext("output", path)
}

func DuplicatePath(first, second, path string) *AutoAPIError {
	return New(CategoryConfig, SeverityFatal, "two nodes resolve to the same path").
		WithContext("first", first).
		WithContext("second", second).
		WithContext("path", path)
}

func ConfigRequired(field string) *AutoAPIError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ConfigNotFound(path string) *AutoAPIError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

// Scoped errors

func DiscoveryError(module string, cause error) *AutoAPIError {
	return Wrap(cause, CategoryDiscovery, SeverityError, "module could not be enumerated").
		WithContext("module", module)
}

func TemplateError(root, template string, cause error) *AutoAPIError {
	return Wrap(cause, CategoryTemplate, SeverityError, "template failed").
		WithContext("root", root).
		WithContext("template", template)
}

func HookError(node string, cause error) *AutoAPIError {
	return Wrap(cause, CategoryHook, SeverityError, "node listener failed").
		WithContext("node", node)
}

func WriteError(node, path string, cause error) *AutoAPIError {
	return Wrap(cause, CategoryFileSystem, SeverityError, "output write failed").
		WithContext("node", node).
		WithContext("path", path)
}

// Internal errors

func InternalError(message string, cause error) *AutoAPIError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
