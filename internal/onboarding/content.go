package onboarding

// Content is the panel payload derived from a connection state.
type Content struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ActionLabel   string `json:"action_label"`
	ActionEnabled bool   `json:"action_enabled"`
	// ShowLoader marks the waiting animation slot.
	ShowLoader bool `json:"show_loader"`
	// ShowPointer marks the "look at your wallet" hint slot.
	ShowPointer bool `json:"show_pointer"`
}

// ContentFor maps a state to its panel content. It has no side effects.
func ContentFor(state ConnectionState) Content {
	switch state {
	case NeedsInstall:
		return Content{
			Title:         "You need to install a wallet",
			Description:   "To play, you need an Ethereum wallet. Click below to install MetaMask.",
			ActionLabel:   "Install Metamask",
			ActionEnabled: true,
		}
	case NeedsConnect:
		return Content{
			Title:         "Connect your wallet",
			Description:   "To play, please connect your Ethereum wallet.",
			ActionLabel:   "Connect Metamask",
			ActionEnabled: true,
			ShowPointer:   true,
		}
	case Connecting:
		return Content{
			Title:         "Connect your wallet",
			Description:   "Waiting for you to connect your wallet...",
			ActionLabel:   "Connect Metamask",
			ActionEnabled: false,
			ShowLoader:    true,
			ShowPointer:   true,
		}
	case Connected:
		return Content{
			Title:         "You're connected! Hooray!",
			Description:   "Thanks for connecting your wallet.",
			ActionLabel:   "Play Flappy Bird",
			ActionEnabled: true,
		}
	default:
		return Content{}
	}
}
