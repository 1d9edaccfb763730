package utils

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
)

var (
	dbURLRegex = regexp.MustCompile(
		"^postgres(ql)?://(.*@)?(?P<addr>(?P<host>[^/:]*?)(:(?P<port>\\d+))?)(/.*)?$")
	natsURLRegex = regexp.MustCompile(
		"^(?P<proto>nats|tls)://(.*@)?(?P<addr>(?P<host>[^/:,]*?)(:(?P<port>\\d+))?)([/,].*)?$")
)

// WaitForTCP polls addr until a tcp connection succeeds or timeout is reached
func WaitForTCP(ctx context.Context, addr string, timeout time.Duration) error {
	start := time.Now()
	log.Debug("wait for tcp connection",
		log.String("addr", addr),
		log.Duration("timeout", timeout))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			log.Debug("tcp connection successful",
				log.String("addr", addr),
				log.Duration("duration", time.Since(start)))
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s could not be reached after %v", addr, timeout)
		case <-ticker.C:
		}
	}
}

// ExtractFromDBURL returns host:port of a postgres url, port defaults to 5432
func ExtractFromDBURL(url string) string {
	return extractAddr(dbURLRegex, url, "5432")
}

// ExtractFromNatsURL returns host:port of the first server in a nats url,
// port defaults to 4222
func ExtractFromNatsURL(url string) string {
	return extractAddr(natsURLRegex, url, "4222")
}

func extractAddr(re *regexp.Regexp, url, defaultPort string) string {
	param := resolveRegex(re, url)
	if len(param) == 0 {
		return ""
	}
	if port := param["port"]; port != "" {
		return param["addr"]
	}
	return net.JoinHostPort(param["host"], defaultPort)
}

func resolveRegex(re *regexp.Regexp, url string) map[string]string {
	match := re.FindStringSubmatch(url)
	if match == nil {
		return nil
	}
	ret := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i > 0 && name != "" {
			ret[name] = match[i]
		}
	}
	return ret
}
