package http

import "github.com/gin-gonic/gin"

// Register wires every handler onto the router.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Storage operations
	r.HEAD("/files/:category/*path", h.StatFile)
	r.GET("/files/:category/*path", h.ReadFile)
	r.PUT("/files/:category/*path", h.WriteFile)
	r.DELETE("/files/:category/*path", h.RemoveFile)

	r.GET("/dirs/:category/*path", h.ReadDir)
	r.POST("/dirs/:category/*path", h.CreateDir)
	r.DELETE("/dirs/:category/*path", h.RemoveDir)

	r.GET("/glob/:category", h.Glob)
	r.POST("/copy", h.CopyFile)
	r.GET("/url", h.ResolveURL)

	r.POST("/blobs/:category/*path", h.CreateBlob)
	r.GET("/blob/:id", h.ServeBlob)
	r.DELETE("/blob/:id", h.RevokeBlob)

	// Library
	r.GET("/library", h.ListBooks)
	r.POST("/library/import", h.ImportBook)
	r.POST("/library/scan", h.ScanLibrary)
	r.POST("/library/export", h.ExportLibrary)
	r.POST("/library/restore", h.RestoreLibrary)
	r.GET("/library/:hash", h.GetBook)
	r.DELETE("/library/:hash", h.RemoveBook)
	r.GET("/library/:hash/config", h.GetBookConfig)
	r.PUT("/library/:hash/config", h.SetBookConfig)
	r.GET("/library/:hash/cover", h.BookCover)
	r.POST("/library/:hash/cover", h.FetchRemoteCover)
	r.GET("/library/:hash/remote", h.RemoteMetadata)
}
