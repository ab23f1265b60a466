package nmap

import (
	"encoding/xml"
	"fmt"

	"github.com/michelemendel/haintsec/internal/scan"
)

// Run mirrors the parts of nmap's -oX document the adapter reads.
type Run struct {
	XMLName xml.Name `xml:"nmaprun"`
	Hosts   []Host   `xml:"host"`
}

type Host struct {
	Addresses []Address  `xml:"address"`
	Hostnames []Hostname `xml:"hostnames>hostname"`
	Ports     []Port     `xml:"ports>port"`
}

type Hostname struct {
	Name string `xml:"name,attr"`
}

type Address struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type Port struct {
	Protocol string   `xml:"protocol,attr"`
	PortID   int      `xml:"portid,attr"`
	State    State    `xml:"state"`
	Service  *Service `xml:"service"`
}

type State struct {
	State  string `xml:"state,attr"`
	Reason string `xml:"reason,attr"`
}

type Service struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
	Conf      string `xml:"conf,attr"`
}

// ParseXML decodes nmap XML output.
func ParseXML(data []byte) (Run, error) {
	var run Run
	if err := xml.Unmarshal(data, &run); err != nil {
		return Run{}, scan.Wrap(scan.ReasonParseError, fmt.Errorf("decode nmap xml: %w", err))
	}
	return run, nil
}

// Key returns the address nmap reports for the host, preferring IPv4, then
// IPv6, then the first hostname.
func (h Host) Key() string {
	for _, want := range []string{"ipv4", "ipv6"} {
		for _, a := range h.Addresses {
			if a.AddrType == want && a.Addr != "" {
				return a.Addr
			}
		}
	}
	for _, a := range h.Addresses {
		if a.AddrType != "mac" && a.Addr != "" {
			return a.Addr
		}
	}
	if len(h.Hostnames) > 0 {
		return h.Hostnames[0].Name
	}
	return ""
}

// Records flattens the run into per-host port lists, keeping only ports of
// the given protocol. Hosts without such ports are left out. Host and port
// order follow the document.
func Records(run Run, protocol scan.Protocol) []scan.HostPorts {
	var out []scan.HostPorts
	index := make(map[string]int)

	for _, h := range run.Hosts {
		key := h.Key()
		if key == "" {
			continue
		}
		var ports []scan.PortRecord
		for _, p := range h.Ports {
			if scan.Protocol(p.Protocol) != protocol {
				continue
			}
			ports = append(ports, record(key, p))
		}
		if len(ports) == 0 {
			continue
		}
		if i, ok := index[key]; ok {
			out[i].Ports = append(out[i].Ports, ports...)
			continue
		}
		index[key] = len(out)
		out = append(out, scan.HostPorts{Host: key, Ports: ports})
	}
	return out
}

func record(host string, p Port) scan.PortRecord {
	r := scan.PortRecord{
		Host:        host,
		Port:        p.PortID,
		Protocol:    scan.Protocol(p.Protocol),
		State:       scan.ParsePortState(p.State.State),
		Reason:      orNA(p.State.Reason),
		ServiceName: scan.NotAvailable,
		Product:     scan.NotAvailable,
		Version:     scan.NotAvailable,
		ExtraInfo:   scan.NotAvailable,
		Confidence:  scan.NotAvailable,
	}
	if s := p.Service; s != nil {
		r.ServiceName = orNA(s.Name)
		r.Product = orNA(s.Product)
		r.Version = orNA(s.Version)
		r.ExtraInfo = orNA(s.ExtraInfo)
		r.Confidence = orNA(s.Conf)
	}
	return r
}

func orNA(s string) string {
	if s == "" {
		return scan.NotAvailable
	}
	return s
}
