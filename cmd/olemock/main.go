package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/indexdata/go-utils/utils"
	"github.com/indexdata/olebridge/olemock"
)

var exit = os.Exit

var HTTP_PORT = utils.GetEnv("HTTP_PORT", "8082")

var oleMock = &olemock.OleMock{}

func main() {
	err := oleMock.Run(HTTP_PORT)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintln(os.Stderr, err.Error())
		exit(1)
	}
}
