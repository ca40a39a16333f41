package utils

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/mpapenbr/racetiming-analytics/log"
)

func WaitForTCP(addr string, timeout time.Duration) error {
	timeoutReached := time.Now().Add(timeout)
	start := time.Now()
	log.Debug("wait for tcp connection",
		log.String("addr", addr),
		log.String("timeout", timeout.String()))
	var d net.Dialer
	for time.Now().Before(timeoutReached) {
		conn, err := d.DialContext(context.Background(), "tcp", addr)
		if err == nil {
			conn.Close()

			log.Debug("tcp connection successful",
				log.String("addr", addr),
				log.String("duration", time.Since(start).String()))
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("%s could not be reached after %v", addr, timeout)
}

// ExtractFromDBURL returns host:port of a postgres url (default port 5432).
func ExtractFromDBURL(url string) string {
	param := resolveRegex(
		"^(postgresql|postgres)://(.*@)?(?P<addr>(?P<host>[^:/?]*?)(:(?P<port>\\d+))?)(/.*)?$",
		url)
	return withDefaultPort(param, "5432")
}

// ExtractFromNatsURL returns host:port of a nats url (default port 4222).
// Only the first server of a comma separated list is considered.
func ExtractFromNatsURL(url string) string {
	param := resolveRegex(
		"^(nats|tls)://(.*@)?(?P<addr>(?P<host>[^:/,]*?)(:(?P<port>\\d+))?)([/,].*)?$",
		url)
	return withDefaultPort(param, "4222")
}

func withDefaultPort(param map[string]string, port string) string {
	if len(param) == 0 || param["host"] == "" {
		return ""
	}
	if p, ok := param["port"]; ok && p != "" {
		return param["addr"] // if port is found, the addr contains our wanted value
	}
	return fmt.Sprintf("%s:%s", param["addr"], port)
}

func resolveRegex(regEx, url string) (paramsMap map[string]string) {
	compRegEx := regexp.MustCompile(regEx)
	match := compRegEx.FindStringSubmatch(url)
	if match == nil {
		return nil
	}

	paramsMap = make(map[string]string)
	for i, name := range compRegEx.SubexpNames() {
		if i > 0 && name != "" {
			paramsMap[name] = match[i]
		}
	}
	return paramsMap
}
