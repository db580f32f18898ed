// Package window drives the shell's single browser window.
//
// The window opens on a local splash page while the sidecar starts. Once the
// health monitor reports ready, the window is told either to navigate to the
// sidecar's URL or to dispatch a DOM event the loaded frontend listens for,
// depending on [ReadyMode]. [Lorca] implements [Window] on a Chrome app
// window through the DevTools protocol.
package window
