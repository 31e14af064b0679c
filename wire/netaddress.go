package wire

import (
	"io"
	"net"
)

// NetAddress defines information about a peer on the network as carried
// inside a version message: supported services, IP and port. The version
// message form has no timestamp field.
type NetAddress struct {
	Services ServiceFlag
	IP       net.IP
	Port     uint16
}

// NewNetAddressIPPort returns a new NetAddress using the provided IP, port
// and supported services.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return &NetAddress{
		Services: services,
		IP:       ip,
		Port:     port,
	}
}

func readNetAddress(r io.Reader, na *NetAddress) error {
	services, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}

	var ip [16]byte
	if _, err = io.ReadFull(r, ip[:]); err != nil {
		return err
	}

	// The port is encoded big endian, unlike everything else on the wire.
	port, err := binarySerializer.Uint16(r, bigEndian)
	if err != nil {
		return err
	}

	na.Services = ServiceFlag(services)
	na.IP = net.IP(ip[:])
	na.Port = port

	return nil
}

func writeNetAddress(w io.Writer, na *NetAddress) error {
	if err := binarySerializer.PutUint64(w, littleEndian, uint64(na.Services)); err != nil {
		return err
	}

	var ip [16]byte
	if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}

	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	return binarySerializer.PutUint16(w, bigEndian, na.Port)
}
