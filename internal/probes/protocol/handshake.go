package protocol

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RADIUS packet constants (RFC 2865, RFC 5997).
const (
	radiusCodeStatusServer         = 12
	radiusAttrMessageAuthenticator = 80
	radiusHeaderLen                = 20
	radiusMessageAuthLen           = 18
)

// SIPOptions builds a minimal SIP OPTIONS request addressed to host:port.
func SIPOptions(host string, port int, transport, localHost string) []byte {
	id := uuid.NewString()
	proto := strings.ToUpper(transport)
	if proto == "" {
		proto = "UDP"
	}
	target := net.JoinHostPort(host, strconv.Itoa(port))

	var b strings.Builder
	fmt.Fprintf(&b, "OPTIONS sip:%s SIP/2.0\r\n", target)
	fmt.Fprintf(&b, "Via: SIP/2.0/%s %s;branch=z9hG4bK-%s\r\n", proto, localHost, id[:8])
	b.WriteString("Max-Forwards: 70\r\n")
	fmt.Fprintf(&b, "To: <sip:%s>\r\n", target)
	fmt.Fprintf(&b, "From: <sip:clusterwatch@%s>;tag=%s\r\n", localHost, id[9:13])
	fmt.Fprintf(&b, "Call-ID: %s@%s\r\n", id, localHost)
	b.WriteString("CSeq: 1 OPTIONS\r\n")
	fmt.Fprintf(&b, "Contact: <sip:clusterwatch@%s>\r\n", localHost)
	b.WriteString("Accept: application/sdp\r\n")
	b.WriteString("User-Agent: clusterwatch\r\n")
	b.WriteString("Content-Length: 0\r\n\r\n")
	return []byte(b.String())
}

// StatusServer builds a RADIUS Status-Server packet signed with secret.
// Servers discard Status-Server without a valid Message-Authenticator, so an
// empty secret still produces a packet but will usually get no reply.
func StatusServer(secret string) ([]byte, error) {
	packet := make([]byte, radiusHeaderLen+radiusMessageAuthLen)
	packet[0] = radiusCodeStatusServer

	var id [1]byte
	if _, err := rand.Read(id[:]); err != nil {
		return nil, fmt.Errorf("generate identifier: %w", err)
	}
	packet[1] = id[0]
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(packet)))
	if _, err := rand.Read(packet[4:20]); err != nil {
		return nil, fmt.Errorf("generate authenticator: %w", err)
	}

	attr := packet[radiusHeaderLen:]
	attr[0] = radiusAttrMessageAuthenticator
	attr[1] = radiusMessageAuthLen

	// HMAC-MD5 over the whole packet with the attribute value zeroed.
	mac := hmac.New(md5.New, []byte(secret))
	mac.Write(packet)
	copy(attr[2:], mac.Sum(nil))
	return packet, nil
}
