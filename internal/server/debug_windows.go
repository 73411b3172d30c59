package server

func listenEnableDebugLogging() {}
