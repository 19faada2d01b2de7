package objmodel

import (
	"errors"
	"fmt"

	"xtc/method"
)

// ProxySuffix is appended to interface name to form name of synthesized proxy
// class.
const ProxySuffix = "$Proxy"

// HandlerField keeps invocation handler in proxy instances.
const HandlerField = "h"

// MultiInterfaceProxyError is returned when proxy is requested for other than
// exactly one interface.
type MultiInterfaceProxyError struct {
	Interfaces []string
}

func (e *MultiInterfaceProxyError) Error() string {
	return fmt.Sprintf("proxy must implement exactly one interface, %d requested %v", len(e.Interfaces), e.Interfaces)
}

// ProxyDescriptor describes dynamic proxy: single interface and single
// invocation handler.
type ProxyDescriptor struct {
	Interface string
	Handler   string
}

// NewProxy validates proxy request. More than one interface is rejected, it
// is never truncated to the first one.
func NewProxy(interfaces []string, handler string) (*ProxyDescriptor, error) {
	if len(interfaces) != 1 {
		return nil, &MultiInterfaceProxyError{Interfaces: append([]string(nil), interfaces...)}
	}
	if len(interfaces[0]) == 0 {
		return nil, errors.New("proxy interface name is empty")
	}
	if len(handler) == 0 {
		return nil, fmt.Errorf("proxy for %q has no invocation handler", interfaces[0])
	}
	return &ProxyDescriptor{Interface: interfaces[0], Handler: handler}, nil
}

// ClassName returns name of synthesized proxy class.
func (p *ProxyDescriptor) ClassName() string {
	return p.Interface + ProxySuffix
}

// Class synthesizes proxy class. Both interface and handler must be known to
// the chain and interface must be an interface.
func (p *ProxyDescriptor) Class(chain *Chain) (*Class, error) {
	ifc, err := chain.FindClass(p.Interface)
	if err != nil {
		return nil, err
	}
	if !ifc.Interface {
		return nil, fmt.Errorf("proxy for %q: not an interface", p.Interface)
	}
	if _, err := chain.FindClass(p.Handler); err != nil {
		return nil, err
	}

	name := p.ClassName()
	return &Class{
		Name:   name,
		Fields: []Field{{Name: HandlerField}},
		Methods: []*method.Declaration{{
			Class:   name,
			Name:    method.ConstructorName,
			Generic: fmt.Sprintf("{%% FIELD %s:%s %%} = h; /* {%% CLASS %s %%} */", name, HandlerField, p.Handler),
		}},
		Proxy: p,
	}, nil
}

// ProxyRequest is a proxy declared by program, it is validated during
// assembly.
type ProxyRequest struct {
	Interfaces []string
	Handler    string
}
