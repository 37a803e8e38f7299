package errors

import (
	"fmt"
	"os"
	"sync"
)

var (
	defaultHandler *ErrorHandler
	once           sync.Once
)

func GetDefaultHandler() (*ErrorHandler, error) {
	var err error
	once.Do(func() {
		defaultHandler, err = NewErrorHandler()
	})
	if err == nil && defaultHandler == nil {
		err = fmt.Errorf("error handler could not be initialised")
	}
	return defaultHandler, err
}

// HandleError reports err through the default handler. When no log file can
// be opened the error is still printed to stderr.
func HandleError(err error) {
	if err == nil {
		return
	}
	handler, handlerErr := GetDefaultHandler()
	if handlerErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	handler.Handle(err)
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	once = sync.Once{}
}
