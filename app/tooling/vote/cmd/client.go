package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/ardanlabs/votechain/business/web/errs"
	"github.com/spf13/viper"
)

// send is a helper function to call the public api of the node.
func send(method string, path string, dataSend any, dataRecv any) error {
	url := strings.TrimSuffix(viper.GetString("url"), "/") + path

	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if dataSend != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := http.Client{Timeout: viper.GetDuration("timeout")}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return responseError(resp.StatusCode, er)
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}

func responseError(status int, er errs.Response) error {
	if len(er.Fields) == 0 {
		return fmt.Errorf("status %d: %s", status, er.Error)
	}

	fields := make([]string, 0, len(er.Fields))
	for field := range er.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]error, len(fields))
	for i, field := range fields {
		msgs[i] = errors.New(er.Fields[field])
	}

	return fmt.Errorf("status %d: %s: %w", status, er.Error, errors.Join(msgs...))
}
