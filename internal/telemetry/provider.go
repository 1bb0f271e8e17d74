package telemetry

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() *LinkStatus

func (f ProviderFunc) Get() *LinkStatus {
	return f()
}
