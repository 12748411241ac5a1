package server

// The three public URLs of a hosted project. The git remote lives behind the
// repo domain; the deployed application is reachable over HTTPS on
// <canonical>-rpc and over websocket on <canonical>.
func (s *Server) repoURL(canonical string) string {
	return "https://git." + s.Config.BaseRepoDomain + "/" + canonical + ".git"
}

func (s *Server) httpURL(canonical string) string {
	return "https://" + canonical + "-rpc." + s.Config.BaseDomain
}

func (s *Server) wsURL(canonical string) string {
	return "wss://" + canonical + "." + s.Config.BaseDomain
}
